// Package det is the default error tracer: drivers hand it flat error reports
// and it dispatches each one, keyed by (module, api), to a handler that ignores,
// logs, publishes, or halts. Reporting is synchronous and returns nothing; the
// caller's control flow never depends on the outcome.
package det

import (
	"strconv"
	"sync"

	"uartdrv-go/errcode"
)

// ModuleID identifies the reporting driver.
type ModuleID uint16

const ModuleUART ModuleID = 0x0100

func (m ModuleID) String() string {
	switch m {
	case ModuleUART:
		return "uart"
	default:
		return "module_" + strconv.Itoa(int(m))
	}
}

// APIID identifies the operation that raised a report.
type APIID uint8

const (
	APIInit APIID = iota
	APISendUpdate
	APIReceiveUpdate
	APISendByte
	APIReceiveByte
	APISendString
	APIReceiveString
	APIPeekLastByte

	// AnyAPI keys a module-wide default handler or feed filter.
	AnyAPI APIID = 0xFF
)

func (a APIID) String() string {
	switch a {
	case APIInit:
		return "init"
	case APISendUpdate:
		return "send_update"
	case APIReceiveUpdate:
		return "receive_update"
	case APISendByte:
		return "send_byte"
	case APIReceiveByte:
		return "receive_byte"
	case APISendString:
		return "send_string"
	case APIReceiveString:
		return "receive_string"
	case APIPeekLastByte:
		return "peek_last_byte"
	case AnyAPI:
		return "*"
	default:
		return "api_" + strconv.Itoa(int(a))
	}
}

// Report is one error occurrence. It is not persisted.
type Report struct {
	Module   ModuleID
	Instance uint8
	API      APIID
	Kind     errcode.Code
}

func (r Report) Error() string {
	return r.Module.String() + "[" + strconv.Itoa(int(r.Instance)) + "] " + r.API.String() + ": " + string(r.Kind)
}

// Unwrap exposes the kind so errors.Is(r, errcode.Overrun) works.
func (r Report) Unwrap() error { return r.Kind }

// Key selects a handler: an exact (module, api) pair, or (module, AnyAPI).
type Key struct {
	Module ModuleID
	API    APIID
}

// Reporter receives reports from drivers.
type Reporter interface {
	Report(r Report)
}

// Handler is the behaviour bound to a key.
type Handler func(r Report)

// Report lets a bare Handler serve as a Reporter.
func (h Handler) Report(r Report) {
	if h != nil {
		h(r)
	}
}

// Tracer dispatches reports through a registered-callback table. The zero
// value is an empty table.
type Tracer struct {
	mu    sync.RWMutex
	table map[Key]Handler
}

func NewTracer() *Tracer {
	return &Tracer{table: make(map[Key]Handler)}
}

// DefaultTracer mirrors the stock table: a UART init failure traps, every
// other UART report is ignored.
func DefaultTracer() *Tracer {
	t := NewTracer()
	t.HandleModule(ModuleUART, Ignore)
	t.Handle(Key{ModuleUART, APIInit}, Trap)
	return t
}

// Handle binds h to k, replacing any previous binding. A nil h removes it.
func (t *Tracer) Handle(k Key, h Handler) {
	t.mu.Lock()
	if t.table == nil {
		t.table = make(map[Key]Handler)
	}
	if h == nil {
		delete(t.table, k)
	} else {
		t.table[k] = h
	}
	t.mu.Unlock()
}

// HandleModule binds the fallback for every api of module m.
func (t *Tracer) HandleModule(m ModuleID, h Handler) {
	t.Handle(Key{m, AnyAPI}, h)
}

// Report runs the handler for (module, api), falling back to the module
// default. Unknown keys are ignored.
func (t *Tracer) Report(r Report) {
	t.mu.RLock()
	h, ok := t.table[Key{r.Module, r.API}]
	if !ok {
		h = t.table[Key{r.Module, AnyAPI}]
	}
	t.mu.RUnlock()
	if h != nil {
		h(r)
	}
}
