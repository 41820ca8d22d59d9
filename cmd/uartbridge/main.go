//go:build !tinygo

// uartbridge drives a host serial adapter through the polled driver: lines
// typed on stdin are sent, received lines are printed to stdout.
package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"time"

	"uartdrv-go/config"
	"uartdrv-go/det"
	"uartdrv-go/hostport"
	"uartdrv-go/pump"
	"uartdrv-go/uart"
	"uartdrv-go/uart/regs"
)

func main() {
	dev := flag.String("port", "", "serial device, e.g. /dev/ttyUSB0")
	list := flag.Bool("list", false, "list serial ports and exit")
	line := flag.String("line", "uart0 9600 stop=1 parity=none", "instance line in config text form")
	period := flag.Duration("period", 200*time.Microsecond, "update tick")
	flag.Parse()

	if *list {
		ports, err := hostport.List()
		if err != nil {
			println("[uartbridge]", err.Error())
			os.Exit(1)
		}
		for _, p := range ports {
			os.Stdout.WriteString(p + "\n")
		}
		return
	}
	if *dev == "" {
		println("[uartbridge] -port is required")
		os.Exit(2)
	}

	table, err := config.ParseText(*line)
	if err != nil || len(table) != 1 || table[0].ID != 0 {
		println("[uartbridge] -line must describe uart0")
		os.Exit(2)
	}

	hp := hostport.New(*dev, uart.DefaultClockHz)
	defer hp.Close()

	tr := det.NewTracer()
	tr.HandleModule(det.ModuleUART, det.Log(os.Stderr))
	d := uart.New([]regs.Registers{hp}, uart.WithReporter(tr), uart.WithTxPolicy(uart.Hold), uart.WithRxPolicy(uart.ReportDrop))
	if err := d.Init(table); err != nil {
		println("[uartbridge] init:", err.Error())
		os.Exit(1)
	}
	if err := hp.Err(); err != nil {
		println("[uartbridge] open", *dev+":", err.Error())
		os.Exit(1)
	}
	mode, _ := hp.Mode()
	println("[uartbridge]", *dev, "baud", mode.BaudRate, "(uart0 "+strconv.FormatUint(uint64(table[0].Baud), 10)+")")
	if got := uint32(mode.BaudRate); got != table[0].Baud && !hostport.Standard(got) {
		println("[uartbridge] warning: divisor gives", got, "baud, not a standard rate near", table[0].Baud)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pump.New(d, pump.Config{Period: *period})
	go p.Run(ctx)

	port, err := d.Port(0)
	if err != nil {
		println("[uartbridge]", err.Error())
		os.Exit(1)
	}
	rd := pump.NewReader(64)
	if _, err := rd.Register(ctx, pump.ReaderCfg{Src: port, Mode: pump.Lines, MaxFrame: 256, IdleFlush: 200 * time.Millisecond}); err != nil {
		println("[uartbridge]", err.Error())
		os.Exit(1)
	}

	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			out := append(sc.Bytes(), '\r', '\n')
			for len(out) > 0 && ctx.Err() == nil {
				n, _ := port.Write(out)
				out = out[n:]
				if len(out) > 0 {
					time.Sleep(time.Millisecond)
				}
			}
		}
		stop()
	}()

	for {
		select {
		case <-ctx.Done():
			st, _ := d.Stats(0)
			println("[uartbridge] tx", st.TxBytes, "rx", st.RxBytes, "rx_drop", st.RxDropped, "line_err", st.LineErrors)
			return
		case ev := <-rd.Events():
			os.Stdout.Write(append(ev.Data, '\n'))
		}
	}
}
