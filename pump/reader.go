package pump

import (
	"context"
	"errors"
	"time"

	"tinygo.org/x/drivers"

	"uartdrv-go/x/mathx"
)

// Source is a TinyGo-style UART stream that knows its instance id;
// *uart.Port satisfies it. The reader only uses the receive side.
type Source interface {
	drivers.UART
	ID() uint8
}

type Mode uint8

const (
	Bytes Mode = iota // raw chunks, binary-safe
	Lines             // split on LF, CR ignored
)

type Event struct {
	ID   uint8
	Data []byte
	TS   time.Time
}

type ReaderCfg struct {
	Src       Source
	Mode      Mode
	MaxFrame  int           // clamp 16..256
	Poll      time.Duration // clamp MinPeriod..MaxPeriod; 0 selects DefaultPeriod
	IdleFlush time.Duration // clamp 0..2s (Lines)
}

// Reader polls registered sources and emits what they received. Events are
// dropped when the consumer is slow.
type Reader struct {
	outQ chan Event
}

func NewReader(outBuf int) *Reader {
	if outBuf <= 0 {
		outBuf = 64
	}
	return &Reader{outQ: make(chan Event, outBuf)}
}

func (r *Reader) Events() <-chan Event { return r.outQ }

// Register starts a polling goroutine for cfg.Src, which becomes the only
// consumer of that instance's receive buffer. Returns cancel.
func (r *Reader) Register(ctx context.Context, cfg ReaderCfg) (func(), error) {
	if cfg.Src == nil {
		return nil, errors.New("pump: nil source")
	}
	max := mathx.Clamp(cfg.MaxFrame, 16, 256)
	idle := mathx.Clamp(cfg.IdleFlush, 0, 2*time.Second)
	poll := cfg.Poll
	if poll == 0 {
		poll = DefaultPeriod
	}
	poll = mathx.Clamp(poll, MinPeriod, MaxPeriod)
	id := cfg.Src.ID()

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		buf := make([]byte, max)
		var line []byte
		var lastRx time.Time

		emit := func(data []byte, now time.Time) {
			select {
			case r.outQ <- Event{ID: id, Data: data, TS: now}:
			default:
			}
		}
		flush := func(now time.Time) {
			if len(line) == 0 {
				return
			}
			emit(append([]byte(nil), line...), now)
			line = line[:0]
		}

		timer := time.NewTimer(time.Hour)
		if !timer.Stop() {
			drainTimer(timer)
		}
		defer timer.Stop()

		for {
			resetTimer(timer, poll)
			select {
			case <-cctx.Done():
				return
			case <-timer.C:
			}

			now := time.Now()
			for cfg.Src.Buffered() > 0 {
				n, _ := cfg.Src.Read(buf)
				if n <= 0 {
					break
				}
				lastRx = now
				if cfg.Mode != Lines {
					emit(append([]byte(nil), buf[:n]...), now)
					continue
				}
				for _, b := range buf[:n] {
					switch b {
					case '\n':
						flush(now)
					case '\r':
					default:
						if len(line) < max {
							line = append(line, b)
						}
					}
				}
			}
			if cfg.Mode == Lines && idle > 0 && len(line) > 0 && now.Sub(lastRx) >= idle {
				flush(now)
			}
		}
	}()
	return cancel, nil
}
