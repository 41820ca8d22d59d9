package uart

import (
	"uartdrv-go/det"
	"uartdrv-go/errcode"
	"uartdrv-go/uart/regs"
)

// lineErrors are checked in this order on every received frame.
var lineErrors = [...]struct {
	bit  uint
	kind errcode.Code
}{
	{regs.FE, errcode.Framing},
	{regs.DOR, errcode.Overrun},
	{regs.PE, errcode.Parity},
}

// tick validates id for the update calls. An uninitialised instance is a
// silent no-op so a scheduler may start ticking before Init.
func (d *Driver) tick(id uint8, api det.APIID) *instance {
	if int(id) >= len(d.inst) {
		d.report(id, api, errcode.InvalidParam)
		return nil
	}
	in := &d.inst[id]
	if !in.ready.Load() {
		return nil
	}
	return in
}

func txReady(in *instance) bool {
	return regs.Has(in.regs.Get(regs.UCSRA), regs.UDRE)
}

// SendUpdate moves at most one byte from the send buffer to the data register.
//
// Under the default ReportDrop policy the byte is dequeued first; if the data
// register is not empty the byte is reported as transmit_register_busy and
// lost. Under Hold the byte stays queued until the register is empty.
func (d *Driver) SendUpdate(id uint8) {
	in := d.tick(id, det.APISendUpdate)
	if in == nil {
		return
	}

	if d.txPolicy == Hold {
		if !txReady(in) {
			return
		}
		if b, ok := in.send.Dequeue(); ok {
			in.regs.Set(regs.UDR, b)
			in.stats.txBytes.Add(1)
		}
		return
	}

	b, ok := in.send.Dequeue()
	if !ok {
		return
	}
	if txReady(in) {
		in.regs.Set(regs.UDR, b)
		in.stats.txBytes.Add(1)
		return
	}
	in.stats.txDropped.Add(1)
	if d.txPolicy == ReportDrop {
		d.report(id, det.APISendUpdate, errcode.TxBusy)
	}
}

// ReceiveUpdate moves at most one received byte into the receive buffer.
//
// Each latched framing, overrun or parity flag produces its own report; if any
// is set the data register is read once to clear the frame and the byte is
// discarded. A clean byte that does not fit the receive buffer is dropped
// silently under the default Drop policy.
func (d *Driver) ReceiveUpdate(id uint8) {
	in := d.tick(id, det.APIReceiveUpdate)
	if in == nil {
		return
	}

	st := in.regs.Get(regs.UCSRA)
	if !regs.Has(st, regs.RXC) {
		return
	}

	// Error bits are valid until UDR is read.
	failed := false
	for _, le := range lineErrors {
		if regs.Has(st, le.bit) {
			d.report(id, det.APIReceiveUpdate, le.kind)
			in.stats.lineErrors.Add(1)
			failed = true
		}
	}
	if failed {
		_ = in.regs.Get(regs.UDR) // clear RXC
		return
	}

	if d.rxPolicy == Hold && in.recv.Free() == 0 {
		return
	}
	b := in.regs.Get(regs.UDR)
	if in.recv.Enqueue(b) {
		in.stats.rxBytes.Add(1)
		return
	}
	in.stats.rxDropped.Add(1)
	if d.rxPolicy == ReportDrop {
		d.report(id, det.APIReceiveUpdate, errcode.BufferFull)
	}
}

// Update runs SendUpdate then ReceiveUpdate for every instance.
func (d *Driver) Update() {
	for i := range d.inst {
		d.SendUpdate(uint8(i))
		d.ReceiveUpdate(uint8(i))
	}
}
