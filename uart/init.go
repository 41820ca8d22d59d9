package uart

import (
	"errors"
	"strconv"

	"uartdrv-go/circbuf"
	"uartdrv-go/det"
	"uartdrv-go/errcode"
	"uartdrv-go/types"
	"uartdrv-go/uart/regs"
	"uartdrv-go/x/mathx"
)

// Divisor returns the UBRR value for baud at clockHz:
// floor(clockHz / (16*baud)) - 1. ok is false when baud is zero or the
// result does not fit the 12-bit UBRR pair.
func Divisor(clockHz, baud uint32) (div uint16, ok bool) {
	q := mathx.FloorDiv(uint64(clockHz), 16*uint64(baud))
	if q == 0 || !mathx.Between(q-1, 0, regs.UBRRMax) {
		return 0, false
	}
	return uint16(q - 1), true
}

// frameFormat is the UCSRC value for 8 data bits with the given stop bits and parity.
func frameFormat(stop types.StopBits, par types.Parity) uint8 {
	v := uint8(1<<regs.URSEL | 1<<regs.UCSZ1 | 1<<regs.UCSZ0)
	if stop == types.StopBits2 {
		v |= 1 << regs.USBS
	}
	switch par {
	case types.ParityEven:
		v |= 1 << regs.UPM1
	case types.ParityOdd:
		v |= 1<<regs.UPM1 | 1<<regs.UPM0
	}
	return v
}

// Init configures every instance named in table: it binds fresh send and
// receive buffers, then programs baud divisor, frame format and enables.
//
// A zero StopBits selects one stop bit. A nil table is reported as invalid_parameter and nothing is touched. An
// invalid row is reported and skipped; the other rows are still applied.
// Clocks and pin muxing must already be set up by the caller. Init must not
// run concurrently with any other call on the same instances.
func (d *Driver) Init(table []Config) error {
	if table == nil {
		d.report(0, det.APIInit, errcode.InvalidParam)
		return &errcode.E{C: errcode.InvalidParam, Op: "uart.init", Msg: "nil configuration table"}
	}

	var errs []error
	for _, c := range table {
		if err := d.initOne(c); err != nil {
			d.report(c.ID, det.APIInit, errcode.InvalidParam)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Driver) initOne(c Config) error {
	fail := func(msg string) error {
		return &errcode.E{C: errcode.InvalidParam, Op: "uart.init", Msg: "uart" + strconv.Itoa(int(c.ID)) + ": " + msg}
	}
	if int(c.ID) >= len(d.inst) {
		return fail("no such instance")
	}
	if c.StopBits == 0 {
		c.StopBits = types.StopBits1
	}
	if !c.StopBits.Valid() {
		return fail("stop bits " + c.StopBits.String())
	}
	if !c.Parity.Valid() {
		return fail("parity " + c.Parity.String())
	}
	div, ok := Divisor(d.clock, c.Baud)
	if !ok {
		return fail("baud " + strconv.FormatUint(uint64(c.Baud), 10) + " out of range")
	}

	in := &d.inst[c.ID]
	in.ready.Store(false)
	in.cfg = c
	in.send = circbuf.Create(in.sendStore, d.bufSize)
	in.recv = circbuf.Create(in.recvStore, d.bufSize)
	in.stats.txBytes.Store(0)
	in.stats.rxBytes.Store(0)
	in.stats.txDropped.Store(0)
	in.stats.rxDropped.Store(0)
	in.stats.lineErrors.Store(0)

	r := in.regs
	r.Set(regs.UBRRL, 0)
	r.Set(regs.UBRRH, 0)
	r.Set(regs.UCSRB, 0)
	r.Set(regs.UCSRC, 0)

	r.Set(regs.UBRRL, uint8(div))
	r.Set(regs.UBRRH, uint8(div>>8))
	// Frame format goes in before the enables so a backend that applies
	// settings on enable sees the final format.
	r.Set(regs.UCSRC, frameFormat(c.StopBits, c.Parity))
	r.Set(regs.UCSRB, 1<<regs.TXEN|1<<regs.RXEN)

	in.ready.Store(true)
	return nil
}
