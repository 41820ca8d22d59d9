// Package config builds UART configuration tables from embedded per-board
// defaults, JSON documents or a line-oriented text form.
package config

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"uartdrv-go/errcode"
	"uartdrv-go/types"
	"uartdrv-go/uart"
)

const (
	instancePrefix = "uart"
	defaultBaud    = 9600
)

// EmbeddedTableLookup allows overriding how board tables are resolved.
var EmbeddedTableLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedTables[board]
	return b, ok
}

// Boards lists the boards with an embedded table.
func Boards() []string {
	out := make([]string, 0, len(embeddedTables))
	for k := range embeddedTables {
		out = append(out, k)
	}
	return out
}

// Lookup returns the embedded table for board.
func Lookup(board string) ([]uart.Config, error) {
	if board == "" {
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "config.lookup", Msg: "missing board name"}
	}
	raw, ok := EmbeddedTableLookup(board)
	if !ok || len(raw) == 0 {
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "config.lookup", Msg: "no embedded table for board: " + board}
	}
	t, err := ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("board %s: %w", board, err)
	}
	return t, nil
}

type document struct {
	UARTs []uart.Config `json:"uarts"`
}

// ParseJSON decodes {"uarts":[{"id":0,"baud":9600,"stop_bits":1,"parity":"none"}, ...]}.
// Missing stop_bits defaults to 1; missing parity to none.
func ParseJSON(src []byte) ([]uart.Config, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "config.json", Err: err}
	}
	if doc.UARTs == nil {
		return nil, &errcode.E{C: errcode.InvalidParam, Op: "config.json", Msg: `missing "uarts"`}
	}
	for i := range doc.UARTs {
		if doc.UARTs[i].StopBits == 0 {
			doc.UARTs[i].StopBits = types.StopBits1
		}
	}
	if err := checkTable(doc.UARTs); err != nil {
		return nil, err
	}
	return doc.UARTs, nil
}

// ParseText reads one instance per line:
//
//	uart0 9600 stop=1 parity=none
//	uart1 baud=115200 parity=even   # comment
//
// The first token names the instance (uartN or a bare N). A bare number or
// baud=N sets the baud rate. Blank lines and comments are ignored; values may
// be quoted.
func ParseText(src string) ([]uart.Config, error) {
	table := []uart.Config{}
	sc := bufio.NewScanner(strings.NewReader(src))
	line := 0
	for sc.Scan() {
		line++
		toks, err := shlex.Split(sc.Text())
		if err != nil {
			return nil, lineErr(line, err.Error())
		}
		if len(toks) == 0 {
			continue
		}
		c, err := parseRow(toks)
		if err != nil {
			return nil, lineErr(line, err.Error())
		}
		table = append(table, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := checkTable(table); err != nil {
		return nil, err
	}
	return table, nil
}

func lineErr(n int, msg string) error {
	return &errcode.E{C: errcode.InvalidParam, Op: "config.text", Msg: "line " + strconv.Itoa(n) + ": " + msg}
}

func parseRow(toks []string) (uart.Config, error) {
	c := uart.Config{Baud: defaultBaud, StopBits: types.StopBits1, Parity: types.ParityNone}

	id, err := strconv.ParseUint(strings.TrimPrefix(toks[0], instancePrefix), 10, 8)
	if err != nil {
		return c, fmt.Errorf("bad instance %q", toks[0])
	}
	c.ID = uint8(id)

	for _, tok := range toks[1:] {
		key, val, found := strings.Cut(tok, "=")
		if !found {
			key, val = "baud", tok
		}
		switch key {
		case "baud":
			b, err := strconv.ParseUint(val, 10, 32)
			if err != nil || b == 0 {
				return c, fmt.Errorf("bad baud %q", val)
			}
			c.Baud = uint32(b)
		case "stop":
			if c.StopBits, err = types.ParseStopBits(val); err != nil {
				return c, fmt.Errorf("stop %q: %w", val, err)
			}
		case "parity":
			if c.Parity, err = types.ParseParity(val); err != nil {
				return c, fmt.Errorf("parity %q: %w", val, err)
			}
		default:
			return c, fmt.Errorf("unknown key %q", key)
		}
	}
	return c, nil
}

// checkTable rejects rows the driver would refuse and duplicate ids.
func checkTable(t []uart.Config) error {
	var errs []error
	seen := map[uint8]bool{}
	for _, c := range t {
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("uart%d: duplicate", c.ID))
		}
		seen[c.ID] = true
		if !c.StopBits.Valid() {
			errs = append(errs, fmt.Errorf("uart%d: %w", c.ID, types.ErrBadStopBits))
		}
		if !c.Parity.Valid() {
			errs = append(errs, fmt.Errorf("uart%d: %w", c.ID, types.ErrBadParity))
		}
		if c.Baud == 0 {
			errs = append(errs, fmt.Errorf("uart%d: zero baud", c.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &errcode.E{C: errcode.InvalidParam, Op: "config", Err: err}
	}
	return nil
}
