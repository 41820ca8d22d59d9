//go:build rp2040 || rp2350

package regs

import (
	"device/rp"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"uartdrv-go/x/mathx"
)

// UARTX presents a PL011 driven by uartx as the register file the polled
// driver expects. Line errors are consumed by the uartx interrupt handler, so
// FE/DOR/PE never latch here.
type UARTX struct {
	u     *uartx.UART
	clock uint32
	ctrl  [numRegs]uint8
}

// NewUARTX wraps u. clockHz must match the clock the driver divides by, so
// the divisor written to UBRR maps back to the intended baud.
func NewUARTX(u *uartx.UART, clockHz uint32) *UARTX {
	return &UARTX{u: u, clock: clockHz}
}

func (x *UARTX) Get(r Reg) uint8 {
	switch r {
	case UCSRA:
		var v uint8
		if !x.u.Bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF) {
			v |= 1 << UDRE
		}
		if x.u.Buffered() > 0 {
			v |= 1 << RXC
		}
		return v
	case UDR:
		b, _ := x.u.ReadByte()
		return b
	default:
		if r >= numRegs {
			return 0
		}
		return x.ctrl[r]
	}
}

func (x *UARTX) Set(r Reg, v uint8) {
	switch r {
	case UDR:
		_ = x.u.WriteByte(v)
	case UCSRB:
		x.ctrl[r] = v
		if Has(v, TXEN) || Has(v, RXEN) {
			x.apply()
		}
	default:
		if r < numRegs {
			x.ctrl[r] = v
		}
	}
}

// apply pushes the staged divisor and frame format into the PL011.
func (x *UARTX) apply() {
	div := uint32(x.ctrl[UBRRH]&0x0F)<<8 | uint32(x.ctrl[UBRRL])
	x.u.SetBaudRate(mathx.RoundDiv(x.clock, 16*(div+1)))

	c := x.ctrl[UCSRC]
	stop := uint8(1)
	if Has(c, USBS) {
		stop = 2
	}
	par := uartx.ParityNone
	switch {
	case Has(c, UPM1) && Has(c, UPM0):
		par = uartx.ParityOdd
	case Has(c, UPM1):
		par = uartx.ParityEven
	}
	_ = x.u.SetFormat(8, stop, par)
}
