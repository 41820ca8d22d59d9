package regs

// ATmega32AMap is the data-space address of each USART register.
// UCSRC and UBRRH share one location; URSEL selects which is written.
var ATmega32AMap = [numRegs]uintptr{
	UDR:   0x002C,
	UCSRA: 0x002B,
	UCSRB: 0x002A,
	UBRRL: 0x0029,
	UCSRC: 0x0040,
	UBRRH: 0x0040,
}
