package regs

import "sync"

// Sim is a simulated UART register file for host tests and demos.
// Injected frames are delivered one at a time through UDR; the transmit side
// records every byte written to UDR. UDRE follows SetTxReady (default true).
type Sim struct {
	mu        sync.Mutex
	ctrl      [numRegs]uint8
	rx        []frame
	tx        []byte
	writes    []Write
	txReady   bool
	loopback  bool
	dataReads int
}

type frame struct {
	b     byte
	flags uint8 // UCSRA error bits latched with this frame
}

// Write is one recorded register store.
type Write struct {
	Reg Reg
	Val uint8
}

// NewSim returns a simulator with the transmitter ready.
func NewSim() *Sim { return &Sim{txReady: true} }

// Get implements Registers.
func (s *Sim) Get(r Reg) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch r {
	case UCSRA:
		v := s.ctrl[UCSRA] & (1<<U2X | 1<<MPCM)
		if s.txReady {
			v |= 1 << UDRE
		}
		if len(s.rx) > 0 {
			v |= 1<<RXC | s.rx[0].flags
		}
		return v
	case UDR:
		s.dataReads++
		if len(s.rx) == 0 {
			return 0
		}
		f := s.rx[0]
		s.rx = s.rx[1:]
		return f.b
	default:
		if r >= numRegs {
			return 0
		}
		return s.ctrl[r]
	}
}

// Set implements Registers.
func (s *Sim) Set(r Reg, v uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, Write{r, v})
	switch r {
	case UDR:
		s.tx = append(s.tx, v)
		if s.loopback && Has(s.ctrl[UCSRB], RXEN) {
			s.rx = append(s.rx, frame{b: v})
		}
	default:
		if r < numRegs {
			s.ctrl[r] = v
		}
	}
}

// SetTxReady drives the UDRE flag.
func (s *Sim) SetTxReady(ready bool) {
	s.mu.Lock()
	s.txReady = ready
	s.mu.Unlock()
}

// SetLoopback routes transmitted bytes back into the receiver while RXEN is set.
func (s *Sim) SetLoopback(on bool) {
	s.mu.Lock()
	s.loopback = on
	s.mu.Unlock()
}

// Inject queues clean received frames.
func (s *Sim) Inject(bs ...byte) {
	s.mu.Lock()
	for _, b := range bs {
		s.rx = append(s.rx, frame{b: b})
	}
	s.mu.Unlock()
}

// InjectError queues one frame with the given UCSRA error bits
// (any of 1<<FE, 1<<DOR, 1<<PE) latched.
func (s *Sim) InjectError(b byte, flags uint8) {
	s.mu.Lock()
	s.rx = append(s.rx, frame{b: b, flags: flags & (1<<FE | 1<<DOR | 1<<PE)})
	s.mu.Unlock()
}

// Pending returns how many injected frames have not been read from UDR.
func (s *Sim) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rx)
}

// Written returns a copy of every byte written to UDR.
func (s *Sim) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.tx...)
}

// Writes returns a copy of every register store, in order.
func (s *Sim) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

// DataReads returns how many times UDR was read.
func (s *Sim) DataReads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataReads
}

// Reset clears recorded traffic and counters, keeping control registers.
func (s *Sim) Reset() {
	s.mu.Lock()
	s.rx, s.tx, s.writes = nil, nil, nil
	s.dataReads = 0
	s.mu.Unlock()
}
