//go:build tinygo && avr

package regs

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO is the register file of a real on-chip USART.
type MMIO struct {
	addr [numRegs]uintptr
}

// ATmega32A returns the single USART of the ATmega32A.
func ATmega32A() *MMIO { return &MMIO{addr: ATmega32AMap} }

func (m *MMIO) reg(r Reg) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(m.addr[r]))
}

func (m *MMIO) Get(r Reg) uint8 { return m.reg(r).Get() }

func (m *MMIO) Set(r Reg, v uint8) { m.reg(r).Set(v) }
