package types

import "errors"

// ------------------------
// Serial
// ------------------------

type Parity uint8

const (
	ParityNone Parity = iota
	ParityEven
	ParityOdd
)

func (p Parity) String() string {
	switch p {
	case ParityEven:
		return "even"
	case ParityOdd:
		return "odd"
	case ParityNone:
		return "none"
	default:
		return "invalid"
	}
}

func (p Parity) Valid() bool { return p <= ParityOdd }

func (p Parity) MarshalJSON() ([]byte, error) { return []byte(`"` + p.String() + `"`), nil }

func (p *Parity) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return ErrBadParity
	}
	v, err := ParseParity(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

var (
	ErrBadParity   = errors.New("invalid_parity")
	ErrBadStopBits = errors.New("invalid_stop_bits")
)

// ParseParity accepts "none", "even", "odd" and the single-letter forms N/E/O.
func ParseParity(s string) (Parity, error) {
	switch s {
	case "none", "n", "N", "":
		return ParityNone, nil
	case "even", "e", "E":
		return ParityEven, nil
	case "odd", "o", "O":
		return ParityOdd, nil
	}
	return 0, ErrBadParity
}

// StopBits is the number of stop bits per frame. Only 1 and 2 are valid.
type StopBits uint8

const (
	StopBits1 StopBits = 1
	StopBits2 StopBits = 2
)

func (s StopBits) Valid() bool { return s == StopBits1 || s == StopBits2 }

func (s StopBits) String() string {
	switch s {
	case StopBits1:
		return "1"
	case StopBits2:
		return "2"
	default:
		return "invalid"
	}
}

// ParseStopBits accepts "1" or "2".
func ParseStopBits(s string) (StopBits, error) {
	switch s {
	case "1":
		return StopBits1, nil
	case "2":
		return StopBits2, nil
	}
	return 0, ErrBadStopBits
}
