//go:build tinygo && (avr || rp2040 || rp2350)

// uartecho is a firmware image that echoes every received byte back on the
// same UART, driven by the polled driver and a periodic tick.
package main

import (
	"context"
	"time"

	"tinygo.org/x/drivers"

	"uartdrv-go/config"
	"uartdrv-go/det"
	"uartdrv-go/pump"
	"uartdrv-go/uart"
)

func main() {
	time.Sleep(1500 * time.Millisecond)
	println("[uartecho] boot", board)

	table, err := config.Lookup(board)
	if err != nil {
		println("[uartecho] no table:", err.Error())
		halt()
	}

	tr := det.NewTracer()
	tr.HandleModule(det.ModuleUART, func(r det.Report) {
		println("[det]", r.Error())
	})
	tr.Handle(det.Key{Module: det.ModuleUART, API: det.APIInit}, det.Trap)

	d := uart.New(registers(), uart.WithReporter(tr), uart.WithClock(clockHz), uart.WithTxPolicy(uart.Hold))
	_ = d.Init(table)

	p := pump.New(d, pump.Config{Period: 500 * time.Microsecond})
	go p.Run(context.Background())

	var ports []drivers.UART
	for i := 0; i < d.InstanceCount(); i++ {
		if port, err := d.Port(uint8(i)); err == nil {
			ports = append(ports, port)
		}
	}

	buf := make([]byte, 16)
	for {
		for _, u := range ports {
			echo(u, buf)
		}
		time.Sleep(time.Millisecond)
	}
}

// echo writes back whatever u has buffered, a chunk at a time. A short write
// leaves the rest of the chunk for the host to notice as loss.
func echo(u drivers.UART, buf []byte) {
	for u.Buffered() > 0 {
		n, _ := u.Read(buf)
		if n == 0 {
			return
		}
		if _, err := u.Write(buf[:n]); err != nil {
			return
		}
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
