package errcode

// Code is a stable error-kind identifier carried in DET reports.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical kinds (short, stable).
const (
	OK Code = "ok"

	// Argument errors: checked first, the call is aborted.
	InvalidParam Code = "invalid_parameter"

	// Transmit path.
	TxBusy Code = "transmit_register_busy"

	// Receive path, one per latched line-status flag.
	Framing Code = "framing_error"
	Overrun Code = "overrun_error"
	Parity  Code = "parity_error"

	// Receive buffer full under a reporting policy.
	BufferFull Code = "buffer_full"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.InvalidParam) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
