package det

import (
	"io"
	"strconv"
	"sync"

	"uartdrv-go/errcode"
)

// Ignore drops the report.
func Ignore(Report) {}

// Fault is the panic value raised by Trap.
type Fault struct {
	Report Report
}

func (f *Fault) Error() string { return "det: trapped: " + f.Report.Error() }
func (f *Fault) Unwrap() error { return f.Report }

// Trap halts the calling goroutine by panicking with a *Fault. On a
// microcontroller an unrecovered panic stops the program, which is the
// default-handler behaviour for fatal reports.
func Trap(r Report) {
	panic(&Fault{Report: r})
}

// Log returns a handler writing one tagged line per report to w:
//
//	[det] module=uart instance=0 api=send_update kind=transmit_register_busy
func Log(w io.Writer) Handler {
	var mu sync.Mutex
	var line []byte
	return func(r Report) {
		mu.Lock()
		defer mu.Unlock()
		line = append(line[:0], "[det] module="...)
		line = append(line, r.Module.String()...)
		line = append(line, " instance="...)
		line = strconv.AppendUint(line, uint64(r.Instance), 10)
		line = append(line, " api="...)
		line = append(line, r.API.String()...)
		line = append(line, " kind="...)
		line = append(line, string(r.Kind)...)
		line = append(line, '\n')
		_, _ = w.Write(line)
	}
}

// Chain runs every non-nil handler in order.
func Chain(hs ...Handler) Handler {
	return func(r Report) {
		for _, h := range hs {
			if h != nil {
				h(r)
			}
		}
	}
}

// Recorder keeps every report it receives. Useful as a test double.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (c *Recorder) Report(r Report) {
	c.mu.Lock()
	c.reports = append(c.reports, r)
	c.mu.Unlock()
}

// Handler adapts the recorder for Tracer.Handle.
func (c *Recorder) Handler() Handler { return c.Report }

// Reports returns a copy of everything recorded so far.
func (c *Recorder) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Count returns how many reports of kind k were recorded.
func (c *Recorder) Count(k errcode.Code) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.reports {
		if r.Kind == k {
			n++
		}
	}
	return n
}

// Len returns the total number of reports.
func (c *Recorder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reports)
}

// Reset forgets all recorded reports.
func (c *Recorder) Reset() {
	c.mu.Lock()
	c.reports = nil
	c.mu.Unlock()
}
