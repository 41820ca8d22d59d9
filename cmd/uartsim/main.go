// uartsim runs the polled driver against simulated register files in
// loopback, then checks that every instance returns what it was sent.
package main

import (
	"context"
	"flag"
	"hash/fnv"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"uartdrv-go/config"
	"uartdrv-go/det"
	"uartdrv-go/pump"
	"uartdrv-go/uart"
	"uartdrv-go/uart/regs"
)

func main() {
	board := flag.String("board", "sim", "embedded table: "+strings.Join(config.Boards(), ", "))
	cfgFile := flag.String("config", "", "table file (.json, otherwise text)")
	period := flag.Duration("period", 100*time.Microsecond, "update tick")
	total := flag.Int("bytes", 4096, "integrity test size per instance")
	chunk := flag.Int("chunk", 64, "write chunk")
	noise := flag.Int("noise", 0, "inject a framing error every N bytes (0 = off)")
	verbose := flag.Bool("v", false, "log every report")
	flag.Parse()

	table, err := loadTable(*board, *cfgFile)
	if err != nil {
		println("[uartsim] config:", err.Error())
		os.Exit(2)
	}

	n := 0
	for _, c := range table {
		n = max(n, int(c.ID)+1)
	}
	sims := make([]*regs.Sim, n)
	files := make([]regs.Registers, n)
	for i := range sims {
		sims[i] = regs.NewSim()
		sims[i].SetLoopback(true)
		files[i] = sims[i]
	}

	feed := det.NewFeed(32)
	errs := feed.Subscribe(det.Key{Module: det.ModuleUART, API: det.AnyAPI})
	defer errs.Unsubscribe()

	tr := det.NewTracer()
	h := feed.Handler()
	if *verbose {
		h = det.Chain(det.Log(os.Stderr), h)
	}
	tr.HandleModule(det.ModuleUART, h)
	tr.Handle(det.Key{Module: det.ModuleUART, API: det.APIInit}, det.Chain(det.Log(os.Stderr), det.Trap))

	d := uart.New(files, uart.WithReporter(tr), uart.WithTxPolicy(uart.Hold), uart.WithRxPolicy(uart.Hold))
	if err := d.Init(table); err != nil {
		println("[uartsim] init:", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	p := pump.New(d, pump.Config{Period: *period})
	go p.Run(ctx)

	failed := false
	for _, c := range table {
		port, err := d.Port(c.ID)
		if err != nil {
			println("[uartsim]", err.Error())
			failed = true
			continue
		}
		println("[uartsim] uart"+strconv.Itoa(int(c.ID)), c.Baud, c.StopBits.String(), c.Parity.String())

		if *noise > 0 {
			sims[c.ID].SetLoopback(false)
			go injectNoise(ctx, sims[c.ID], *noise)
		}
		ok := integrity(ctx, port, *total, *chunk, *noise > 0)
		if ok {
			println("[uartsim]   integrity: PASS")
		} else {
			println("[uartsim]   integrity: FAIL")
			failed = true
		}
		st, _ := d.Stats(c.ID)
		println("[uartsim]   tx", st.TxBytes, "rx", st.RxBytes, "tx_drop", st.TxDropped, "rx_drop", st.RxDropped, "line_err", st.LineErrors)
	}

	reports := drain(errs.Channel())
	println("[uartsim] ticks", p.Ticks(), "reports", reports)
	if failed {
		os.Exit(1)
	}
}

func loadTable(board, file string) ([]uart.Config, error) {
	if file == "" {
		return config.Lookup(board)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(file, ".json") {
		return config.ParseJSON(src)
	}
	return config.ParseText(string(src))
}

// integrity writes total bytes of a known pattern in chunks and compares the
// FNV-1a hash of what comes back. With lossy set the bytes are only counted.
func integrity(ctx context.Context, port *uart.Port, total, chunk int, lossy bool) bool {
	if chunk < 1 {
		chunk = 1
	}
	src := make([]byte, total)
	for i := range src {
		src[i] = byte(i*7 + i>>8)
	}
	want := fnv.New32a()
	want.Write(src)
	got := fnv.New32a()

	buf := make([]byte, chunk)
	sent, recvd := 0, 0
	deadline := time.Now().Add(10 * time.Second)
	for recvd < total && time.Now().Before(deadline) && ctx.Err() == nil {
		if sent < total {
			n, _ := port.Write(src[sent:min(total, sent+chunk)])
			sent += n
		}
		n, _ := port.Read(buf)
		got.Write(buf[:n])
		recvd += n
		if n == 0 {
			time.Sleep(200 * time.Microsecond)
		}
		if lossy && sent == total && port.Buffered() == 0 {
			break
		}
	}
	if lossy {
		println("[uartsim]   sent", sent, "received", recvd)
		return sent == total
	}
	return recvd == total && got.Sum32() == want.Sum32()
}

// injectNoise feeds the transmitted stream back by hand, corrupting every
// nth frame with a framing error.
func injectNoise(ctx context.Context, s *regs.Sim, every int) {
	seen := 0
	for ctx.Err() == nil {
		w := s.Written()
		for ; seen < len(w); seen++ {
			if (seen+1)%every == 0 {
				s.InjectError(w[seen], 1<<regs.FE)
			} else {
				s.Inject(w[seen])
			}
		}
		time.Sleep(100 * time.Microsecond)
	}
}

func drain(ch <-chan det.Report) int {
	n := 0
	for {
		select {
		case r := <-ch:
			n++
			if n <= 8 {
				println("[uartsim] report", r.Error())
			}
		default:
			return n
		}
	}
}
