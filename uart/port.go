package uart

import (
	"strconv"

	"tinygo.org/x/drivers"

	"uartdrv-go/errcode"
)

// Port is a byte-stream view of one instance, shaped like the TinyGo UART
// that sensor drivers consume. Read and Write never block: Read returns what
// is buffered (possibly 0, nil) and Write queues what fits.
type Port struct {
	d  *Driver
	id uint8
}

var _ drivers.UART = (*Port)(nil)

// Port returns the stream view of instance id, which must be initialised.
func (d *Driver) Port(id uint8) (*Port, error) {
	if !d.Ready(id) {
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "uart.port", Msg: "uart" + strconv.Itoa(int(id)) + " not initialised"}
	}
	return &Port{d: d, id: id}, nil
}

// ID returns the instance id.
func (p *Port) ID() uint8 { return p.id }

// Read implements io.Reader without blocking.
func (p *Port) Read(b []byte) (int, error) {
	return p.d.ReceiveString(p.id, b), nil
}

// Write implements io.Writer. A short write returns buffer_full.
func (p *Port) Write(b []byte) (int, error) {
	n := p.d.SendString(p.id, b)
	if n < len(b) {
		return n, &errcode.E{C: errcode.BufferFull, Op: "uart.write"}
	}
	return n, nil
}

// WriteByte queues a single byte.
func (p *Port) WriteByte(c byte) error {
	if !p.d.SendByte(p.id, c) {
		return &errcode.E{C: errcode.BufferFull, Op: "uart.write"}
	}
	return nil
}

// ReadByte takes one byte; it returns an error when nothing is buffered.
func (p *Port) ReadByte() (byte, error) {
	b, ok := p.d.ReceiveByte(p.id)
	if !ok {
		return 0, &errcode.E{C: errcode.Error, Op: "uart.read", Msg: "buffer empty"}
	}
	return b, nil
}

// Buffered returns the number of bytes ready to Read.
func (p *Port) Buffered() int { return p.d.Buffered(p.id) }
