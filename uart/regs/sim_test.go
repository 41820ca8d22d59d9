package regs

import "testing"

func TestSimStatusAndDataRead(t *testing.T) {
	s := NewSim()
	if st := s.Get(UCSRA); !Has(st, UDRE) || Has(st, RXC) {
		t.Fatalf("idle status %08b", st)
	}

	s.InjectError(0x55, 1<<FE|1<<PE)
	s.Inject('A')
	st := s.Get(UCSRA)
	if !Has(st, RXC) || !Has(st, FE) || !Has(st, PE) || Has(st, DOR) {
		t.Fatalf("status with errored frame %08b", st)
	}
	if b := s.Get(UDR); b != 0x55 {
		t.Fatalf("UDR = %#x", b)
	}
	// Reading UDR clears the latched flags of the consumed frame.
	st = s.Get(UCSRA)
	if !Has(st, RXC) || Has(st, FE) || Has(st, PE) {
		t.Fatalf("status after read %08b", st)
	}
	if b := s.Get(UDR); b != 'A' {
		t.Fatalf("UDR = %q", b)
	}
	if Has(s.Get(UCSRA), RXC) {
		t.Fatal("RXC still set after draining")
	}
	if s.DataReads() != 2 {
		t.Fatalf("data reads = %d", s.DataReads())
	}
}

func TestSimTransmitAndLoopback(t *testing.T) {
	s := NewSim()
	s.SetTxReady(false)
	if Has(s.Get(UCSRA), UDRE) {
		t.Fatal("UDRE set while not ready")
	}
	s.SetTxReady(true)

	s.Set(UDR, 1)
	s.SetLoopback(true)
	s.Set(UDR, 2) // RXEN clear: not looped
	s.Set(UCSRB, 1<<RXEN|1<<TXEN)
	s.Set(UDR, 3)

	if got := s.Written(); string(got) != "\x01\x02\x03" {
		t.Fatalf("written %v", got)
	}
	if s.Pending() != 1 || s.Get(UDR) != 3 {
		t.Fatal("loopback frame missing")
	}
	if s.Get(UCSRB) != 1<<RXEN|1<<TXEN {
		t.Fatalf("UCSRB = %08b", s.Get(UCSRB))
	}
	w := s.Writes()
	if len(w) != 4 || w[2] != (Write{Reg: UCSRB, Val: 1<<RXEN | 1<<TXEN}) {
		t.Fatalf("writes %v", w)
	}

	s.Reset()
	if len(s.Written()) != 0 || s.DataReads() != 0 || len(s.Writes()) != 0 {
		t.Fatal("reset kept traffic")
	}
}

func TestRegNames(t *testing.T) {
	if UBRRH.String() != "UBRRH" || Reg(99).String() != "REG?" {
		t.Fatal("register names")
	}
	if ATmega32AMap[UDR] != 0x2C || ATmega32AMap[UCSRC] != ATmega32AMap[UBRRH] {
		t.Fatal("memory map")
	}
}
