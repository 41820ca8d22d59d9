// Package pump drives the periodic update tick of a polled UART driver and
// turns received bytes into events for consumers that prefer channels.
package pump

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"uartdrv-go/x/mathx"
)

const (
	MinPeriod     = 50 * time.Microsecond
	MaxPeriod     = time.Second
	DefaultPeriod = time.Millisecond // about one frame at 9600 baud
)

var ErrRunning = errors.New("pump: already running")

// Ticker is what the pump drives. *uart.Driver satisfies it.
type Ticker interface {
	Update()
}

type Config struct {
	Period time.Duration // clamp MinPeriod..MaxPeriod; 0 selects DefaultPeriod
}

// Pump calls Update on a fixed period from a single goroutine.
type Pump struct {
	t       Ticker
	period  time.Duration
	ticks   atomic.Uint64
	running atomic.Bool
}

func New(t Ticker, cfg Config) *Pump {
	p := cfg.Period
	if p == 0 {
		p = DefaultPeriod
	}
	return &Pump{t: t, period: mathx.Clamp(p, MinPeriod, MaxPeriod)}
}

func (p *Pump) Period() time.Duration { return p.period }

// Ticks is the number of completed ticks.
func (p *Pump) Ticks() uint64 { return p.ticks.Load() }

// Step performs exactly one tick. It must not be mixed with a running Run.
func (p *Pump) Step() {
	p.t.Update()
	p.ticks.Add(1)
}

// Run ticks until ctx is done and returns ctx.Err(). Only one Run may be
// active per Pump.
func (p *Pump) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer p.running.Store(false)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		drainTimer(timer)
	}
	defer timer.Stop()

	for {
		resetTimer(timer, p.period)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			p.Step()
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if d < 0 {
		d = 0
	}
	if !t.Stop() {
		drainTimer(t)
	}
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	select {
	case <-t.C:
	default:
	}
}
