// Package regs describes the UART register file the driver programs and polls,
// using the ATmega32A USART layout. Backends supply it as real memory-mapped
// registers, as an emulation over another UART stack, or as a simulation.
package regs

// Reg names one 8-bit register of a UART instance.
type Reg uint8

const (
	UDR   Reg = iota // data: read pops RX, write starts TX
	UCSRA            // status
	UCSRB            // control: enables
	UCSRC            // control: frame format
	UBRRL            // baud divisor, low byte
	UBRRH            // baud divisor, high bits
	numRegs
)

func (r Reg) String() string {
	switch r {
	case UDR:
		return "UDR"
	case UCSRA:
		return "UCSRA"
	case UCSRB:
		return "UCSRB"
	case UCSRC:
		return "UCSRC"
	case UBRRL:
		return "UBRRL"
	case UBRRH:
		return "UBRRH"
	default:
		return "REG?"
	}
}

// Registers is byte-granular access to one instance's register file.
// Get on UDR has the hardware side effect of clearing RXC and the latched
// FE/DOR/PE flags.
type Registers interface {
	Get(r Reg) uint8
	Set(r Reg, v uint8)
}

// UCSRA bits.
const (
	MPCM = 0
	U2X  = 1
	PE   = 2 // parity error
	DOR  = 3 // data overrun
	FE   = 4 // frame error
	UDRE = 5 // data register empty
	TXC  = 6
	RXC  = 7 // receive complete
)

// UCSRB bits.
const (
	TXB8  = 0
	RXB8  = 1
	UCSZ2 = 2
	TXEN  = 3
	RXEN  = 4
	UDRIE = 5
	TXCIE = 6
	RXCIE = 7
)

// UCSRC bits. URSEL must be set when writing UCSRC because it shares its
// I/O location with UBRRH.
const (
	UCPOL = 0
	UCSZ0 = 1
	UCSZ1 = 2
	USBS  = 3
	UPM0  = 4
	UPM1  = 5
	UMSEL = 6
	URSEL = 7
)

// Has reports whether bit is set in v.
func Has(v uint8, bit uint) bool { return v&(1<<bit) != 0 }

// UBRRMax is the largest divisor the 12-bit UBRR pair holds.
const UBRRMax = 0x0FFF
