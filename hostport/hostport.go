//go:build !tinygo

// Package hostport emulates the UART register file over a host serial port,
// so the polled driver can run against a USB adapter on a development machine.
//
// Writing the enable bits to UCSRB opens the port with the baud rate and frame
// format currently held in UBRRH:UBRRL and UCSRC; writing 0 closes it. A
// background goroutine reads from the port into a receive ring; UDR reads
// drain that ring. Bytes lost to a full ring latch DOR on the next frame.
package hostport

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"uartdrv-go/circbuf"
	"uartdrv-go/uart/regs"
	"uartdrv-go/x/mathx"
)

const (
	readTimeout   = 50 * time.Millisecond
	defaultRxSize = 256
	txDepth       = 2 // data register plus shift register
)

// Conn is the part of serial.Port the emulation uses.
type Conn interface {
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// Opener opens name with mode. The default uses serial.Open.
type Opener func(name string, mode *serial.Mode) (Conn, error)

func openSerial(name string, mode *serial.Mode) (Conn, error) {
	return serial.Open(name, mode)
}

// Port is a regs.Registers backed by a serial port.
type Port struct {
	name   string
	clock  uint32
	rxSize int
	open   Opener

	mu                         sync.Mutex
	ucsrb, ucsrc, ubrrl, ubrrh uint8
	conn                       Conn
	mode                       serial.Mode
	tx                         chan byte
	done                       chan struct{}
	wg                         sync.WaitGroup

	rx   *circbuf.Buffer
	dor  atomic.Bool
	rxen atomic.Bool

	errMu sync.Mutex
	err   error
}

var _ regs.Registers = (*Port)(nil)

type Option func(*Port)

// WithOpener replaces serial.Open.
func WithOpener(o Opener) Option { return func(p *Port) { p.open = o } }

// WithRxBuffer sets the receive ring size.
func WithRxBuffer(n int) Option { return func(p *Port) { p.rxSize = n } }

// New returns a closed port for device name (e.g. /dev/ttyUSB0, COM3).
func New(name string, clockHz uint32, opts ...Option) *Port {
	p := &Port{name: name, clock: clockHz, rxSize: defaultRxSize, open: openSerial}
	for _, o := range opts {
		o(p)
	}
	if p.rxSize < 1 {
		p.rxSize = defaultRxSize
	}
	p.rx = circbuf.New(p.rxSize)
	return p
}

// Name returns the device name.
func (p *Port) Name() string { return p.name }

// Mode returns the mode the port was last opened or reconfigured with.
func (p *Port) Mode() (serial.Mode, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode, p.conn != nil
}

// Err returns the first I/O error seen since the port was opened.
func (p *Port) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Port) setErr(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
}

// Get implements regs.Registers.
func (p *Port) Get(r regs.Reg) uint8 {
	switch r {
	case regs.UCSRA:
		var v uint8
		p.mu.Lock()
		if p.tx == nil || len(p.tx) < cap(p.tx) {
			v |= 1 << regs.UDRE
		}
		p.mu.Unlock()
		if p.rx.Len() > 0 {
			v |= 1 << regs.RXC
			if p.dor.Load() {
				v |= 1 << regs.DOR
			}
		}
		return v
	case regs.UDR:
		b, ok := p.rx.Dequeue()
		if ok {
			p.dor.Store(false)
		}
		return b
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch r {
	case regs.UCSRB:
		return p.ucsrb
	case regs.UCSRC:
		return p.ucsrc
	case regs.UBRRL:
		return p.ubrrl
	case regs.UBRRH:
		return p.ubrrh
	}
	return 0
}

// Set implements regs.Registers. I/O failures are kept for Err.
func (p *Port) Set(r regs.Reg, v uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch r {
	case regs.UDR:
		if p.tx == nil {
			return
		}
		select {
		case p.tx <- v:
		default: // transmitter busy; the byte is lost as on hardware
		}
	case regs.UCSRB:
		p.ucsrb = v
		p.rxen.Store(regs.Has(v, regs.RXEN))
		if v&(1<<regs.TXEN|1<<regs.RXEN) == 0 {
			p.closeLocked()
			return
		}
		if err := p.applyLocked(); err != nil {
			p.setErr(err)
		}
	case regs.UCSRC:
		if regs.Has(v, regs.URSEL) {
			p.ucsrc = v
		} else {
			p.ubrrh = v & 0x0F
		}
	case regs.UBRRL:
		p.ubrrl = v
	case regs.UBRRH:
		p.ubrrh = v & 0x0F
	}
}

// Close stops the background goroutines and closes the port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Port) applyLocked() error {
	mode := ModeFor(p.clock, uint16(p.ubrrh)<<8|uint16(p.ubrrl), p.ucsrc)
	if p.conn != nil {
		if err := p.conn.SetMode(mode); err != nil {
			return err
		}
		p.mode = *mode
		return nil
	}

	conn, err := p.open(p.name, mode)
	if err != nil {
		return err
	}
	if err := conn.SetReadTimeout(readTimeout); err != nil {
		conn.Close()
		return err
	}
	p.conn, p.mode = conn, *mode
	p.tx = make(chan byte, txDepth)
	p.done = make(chan struct{})
	p.errMu.Lock()
	p.err = nil
	p.errMu.Unlock()
	p.rx.Reset()
	p.dor.Store(false)

	p.wg.Add(2)
	go p.readLoop(conn, p.done)
	go p.writeLoop(conn, p.tx, p.done)
	return nil
}

func (p *Port) closeLocked() error {
	if p.conn == nil {
		return nil
	}
	close(p.done)
	err := p.conn.Close()
	p.wg.Wait()
	p.conn, p.tx, p.done = nil, nil, nil
	return err
}

func (p *Port) readLoop(c Conn, done <-chan struct{}) {
	defer p.wg.Done()
	buf := make([]byte, 64)
	for {
		n, err := c.Read(buf)
		select {
		case <-done:
			return
		default:
		}
		if err != nil {
			p.setErr(err)
			return
		}
		if !p.rxen.Load() {
			continue
		}
		for _, b := range buf[:n] {
			if !p.rx.Enqueue(b) {
				p.dor.Store(true)
			}
		}
	}
}

func (p *Port) writeLoop(c Conn, tx <-chan byte, done <-chan struct{}) {
	defer p.wg.Done()
	var one [1]byte
	for {
		select {
		case <-done:
			return
		case b := <-tx:
			one[0] = b
			if _, err := c.Write(one[:]); err != nil {
				p.setErr(err)
				return
			}
		}
	}
}

// standardBauds are the rates host adapters accept everywhere.
var standardBauds = [...]uint32{
	300, 600, 1200, 2400, 4800, 9600, 14400, 19200, 28800, 38400,
	57600, 76800, 115200, 230400, 250000, 460800, 500000, 921600, 1000000,
}

// SnapBaud returns the standard rate within 3% of b, or b itself.
// 12 MHz with UBRR 77 yields 9615, which snaps to 9600. Some pairings have
// no divisor close enough: 12 MHz cannot reach 115200, UBRR 5 yields 125000
// and is passed through unchanged. Use Standard to detect that case.
func SnapBaud(b uint32) uint32 {
	for _, s := range standardBauds {
		lo, hi := s-s*3/100, s+s*3/100
		if b >= lo && b <= hi {
			return s
		}
	}
	return b
}

// Standard reports whether b is a rate SnapBaud can return for an in-window input.
func Standard(b uint32) bool {
	for _, s := range standardBauds {
		if b == s {
			return true
		}
	}
	return false
}

// ModeFor translates divisor and UCSRC into a serial mode.
func ModeFor(clockHz uint32, ubrr uint16, ucsrc uint8) *serial.Mode {
	baud := SnapBaud(mathx.RoundDiv(clockHz, 16*(uint32(ubrr)+1)))
	m := &serial.Mode{
		BaudRate: int(baud),
		DataBits: 5 + int(ucsrc>>regs.UCSZ0&0x3),
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch {
	case regs.Has(ucsrc, regs.UPM1) && regs.Has(ucsrc, regs.UPM0):
		m.Parity = serial.OddParity
	case regs.Has(ucsrc, regs.UPM1):
		m.Parity = serial.EvenParity
	}
	if regs.Has(ucsrc, regs.USBS) {
		m.StopBits = serial.TwoStopBits
	}
	return m
}

// ErrNoPorts is returned by List when the host has no serial ports.
var ErrNoPorts = errors.New("hostport: no serial ports found")

// List returns the serial ports present on the host.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		return nil, ErrNoPorts
	}
	return ports, nil
}
