package uart

import "uartdrv-go/det"

// SendByte queues b for transmission. It returns false when the send buffer
// is full, or when id is out of range or not initialised (reported as
// invalid_parameter).
func (d *Driver) SendByte(id uint8, b byte) bool {
	in := d.lookup(id, det.APISendByte)
	if in == nil {
		return false
	}
	return in.send.Enqueue(b)
}

// ReceiveByte takes the oldest received byte. ok is false when nothing is
// buffered or id is invalid.
func (d *Driver) ReceiveByte(id uint8) (b byte, ok bool) {
	in := d.lookup(id, det.APIReceiveByte)
	if in == nil {
		return 0, false
	}
	return in.recv.Dequeue()
}

// SendString queues bytes from data in order until the send buffer fills and
// returns how many were queued. Empty data returns 0 without validation.
func (d *Driver) SendString(id uint8, data []byte) int {
	if len(data) == 0 {
		return 0
	}
	in := d.lookup(id, det.APISendString)
	if in == nil {
		return 0
	}
	n := 0
	for n < len(data) && in.send.Enqueue(data[n]) {
		n++
	}
	return n
}

// ReceiveString fills buf from the receive buffer until it is empty or buf is
// full, returning the count. Empty buf returns 0 without validation.
func (d *Driver) ReceiveString(id uint8, buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	in := d.lookup(id, det.APIReceiveString)
	if in == nil {
		return 0
	}
	n := 0
	for n < len(buf) {
		b, ok := in.recv.Dequeue()
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n
}

// PeekLastByte returns the most recently received byte still in the receive
// buffer, without consuming it.
func (d *Driver) PeekLastByte(id uint8) (b byte, ok bool) {
	in := d.lookup(id, det.APIPeekLastByte)
	if in == nil {
		return 0, false
	}
	return in.recv.PeekLast()
}

// Buffered returns the number of received bytes waiting in instance id.
func (d *Driver) Buffered(id uint8) int {
	if !d.Ready(id) {
		return 0
	}
	return d.inst[id].recv.Len()
}

// SendFree returns the free space in instance id's send buffer.
func (d *Driver) SendFree(id uint8) int {
	if !d.Ready(id) {
		return 0
	}
	return d.inst[id].send.Free()
}
