//go:build tinygo && (rp2040 || rp2350)

package main

import (
	"github.com/jangala-dev/tinygo-uartx/uartx"

	"uartdrv-go/uart/regs"
)

const board = "pico"

// A baud-rate crystal frequency: every standard rate divides it exactly, so
// the divisor maps back to the configured baud without error.
const clockHz = 14_745_600

func registers() []regs.Registers {
	u := uartx.UART0
	// Pin muxing and clocks; Init programs baud and format afterwards.
	if err := u.Configure(uartx.UARTConfig{TX: uartx.UART_TX_PIN, RX: uartx.UART_RX_PIN}); err != nil {
		println("[uartecho] uart0 configure:", err.Error())
		halt()
	}
	return []regs.Registers{regs.NewUARTX(u, clockHz)}
}
