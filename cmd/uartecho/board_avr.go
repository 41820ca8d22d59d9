//go:build tinygo && avr

package main

import "uartdrv-go/uart/regs"

const (
	board   = "atmega32a"
	clockHz = 12_000_000
)

func registers() []regs.Registers {
	return []regs.Registers{regs.ATmega32A()}
}
