// Package uart is a polled UART driver. Application code queues bytes into a
// per-instance send buffer and drains a per-instance receive buffer; a periodic
// tick calls SendUpdate and ReceiveUpdate, which move at most one byte each
// between those buffers and the peripheral's data register.
//
// The byte API and the update calls may run on different goroutines. Each
// direction is a single-producer/single-consumer circular buffer, so at most
// one goroutine may use the byte API of an instance and at most one may tick it.
//
// Parameter errors and line errors go to a det.Reporter; the driver never
// retries.
package uart

import (
	"sync/atomic"

	"uartdrv-go/circbuf"
	"uartdrv-go/det"
	"uartdrv-go/errcode"
	"uartdrv-go/types"
	"uartdrv-go/uart/regs"
)

const (
	// DefaultClockHz is the system clock the baud divisor is derived from.
	DefaultClockHz = 12_000_000
	// DefaultBufferSize is the capacity of each send and receive buffer.
	DefaultBufferSize = 80
)

// Config is one row of the configuration table.
type Config struct {
	ID       uint8          `json:"id"`
	Baud     uint32         `json:"baud"`
	StopBits types.StopBits `json:"stop_bits"`
	Parity   types.Parity   `json:"parity"`
}

// Policy selects what happens to a byte that cannot move this tick.
type Policy uint8

const (
	// Drop loses the byte silently.
	Drop Policy = iota
	// ReportDrop loses the byte and reports it.
	ReportDrop
	// Hold leaves the byte where it is (send buffer or data register) and
	// retries on a later tick.
	Hold
)

func (p Policy) String() string {
	switch p {
	case Drop:
		return "drop"
	case ReportDrop:
		return "report_drop"
	case Hold:
		return "hold"
	default:
		return "invalid"
	}
}

// Stats are per-instance counters since Init.
type Stats struct {
	TxBytes    uint32 // bytes written to the data register
	RxBytes    uint32 // bytes stored in the receive buffer
	TxDropped  uint32 // bytes lost because the transmitter was busy
	RxDropped  uint32 // bytes lost because the receive buffer was full
	LineErrors uint32 // framing, overrun and parity flags seen
}

type counters struct {
	txBytes, rxBytes, txDropped, rxDropped, lineErrors atomic.Uint32
}

// instance is one configured peripheral and its two buffers.
type instance struct {
	regs  regs.Registers
	cfg   Config
	ready atomic.Bool

	sendStore, recvStore []byte
	send, recv           *circbuf.Buffer

	stats counters
}

// Driver owns every instance. Instances are fixed at New.
type Driver struct {
	inst     []instance
	rep      det.Reporter
	clock    uint32
	bufSize  int
	txPolicy Policy
	rxPolicy Policy
}

// Option customises a Driver.
type Option func(*Driver)

// WithReporter routes error reports to r. The default is det.DefaultTracer().
func WithReporter(r det.Reporter) Option { return func(d *Driver) { d.rep = r } }

// WithClock sets the clock frequency used for the baud divisor.
func WithClock(hz uint32) Option { return func(d *Driver) { d.clock = hz } }

// WithBufferSize sets the capacity of every send and receive buffer.
func WithBufferSize(n int) Option { return func(d *Driver) { d.bufSize = n } }

// WithTxPolicy selects the transmit-busy behaviour. Default ReportDrop.
func WithTxPolicy(p Policy) Option { return func(d *Driver) { d.txPolicy = p } }

// WithRxPolicy selects the receive-buffer-full behaviour. Default Drop.
func WithRxPolicy(p Policy) Option { return func(d *Driver) { d.rxPolicy = p } }

// New creates a driver with one instance per register file. Buffer storage for
// every instance is reserved here; Init binds it.
func New(files []regs.Registers, opts ...Option) *Driver {
	d := &Driver{
		clock:    DefaultClockHz,
		bufSize:  DefaultBufferSize,
		txPolicy: ReportDrop,
		rxPolicy: Drop,
	}
	for _, o := range opts {
		o(d)
	}
	if d.rep == nil {
		d.rep = det.DefaultTracer()
	}
	if d.bufSize < 1 {
		d.bufSize = 1
	}

	d.inst = make([]instance, len(files))
	slab := make([]byte, 2*len(files)*d.bufSize)
	for i := range d.inst {
		in := &d.inst[i]
		in.regs = files[i]
		off := 2 * i * d.bufSize
		in.sendStore = slab[off : off+d.bufSize : off+d.bufSize]
		in.recvStore = slab[off+d.bufSize : off+2*d.bufSize : off+2*d.bufSize]
	}
	return d
}

// InstanceCount is the number of instances fixed at New.
func (d *Driver) InstanceCount() int { return len(d.inst) }

// Ready reports whether instance id has been initialised.
func (d *Driver) Ready(id uint8) bool {
	return int(id) < len(d.inst) && d.inst[id].ready.Load()
}

// Config returns the configuration applied to instance id by Init.
func (d *Driver) Config(id uint8) (Config, bool) {
	if !d.Ready(id) {
		return Config{}, false
	}
	return d.inst[id].cfg, true
}

// Stats returns a snapshot of instance id's counters.
func (d *Driver) Stats(id uint8) (Stats, bool) {
	if int(id) >= len(d.inst) {
		return Stats{}, false
	}
	c := &d.inst[id].stats
	return Stats{
		TxBytes:    c.txBytes.Load(),
		RxBytes:    c.rxBytes.Load(),
		TxDropped:  c.txDropped.Load(),
		RxDropped:  c.rxDropped.Load(),
		LineErrors: c.lineErrors.Load(),
	}, true
}

func (d *Driver) report(id uint8, api det.APIID, kind errcode.Code) {
	d.rep.Report(det.Report{Module: det.ModuleUART, Instance: id, API: api, Kind: kind})
}

// lookup validates id for the byte API: it must be in range and initialised.
func (d *Driver) lookup(id uint8, api det.APIID) *instance {
	if int(id) >= len(d.inst) || !d.inst[id].ready.Load() {
		d.report(id, api, errcode.InvalidParam)
		return nil
	}
	return &d.inst[id]
}
