package uart

import (
	"errors"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"uartdrv-go/det"
	"uartdrv-go/errcode"
	"uartdrv-go/types"
	"uartdrv-go/uart/regs"
)

// newTestDriver returns a driver over n simulated instances, all initialised
// at 9600 8N1, and the recorder receiving its reports.
func newTestDriver(t *testing.T, n int, opts ...Option) (*Driver, []*regs.Sim, *det.Recorder) {
	t.Helper()
	rec := &det.Recorder{}
	sims := make([]*regs.Sim, n)
	files := make([]regs.Registers, n)
	table := make([]Config, n)
	for i := range sims {
		sims[i] = regs.NewSim()
		files[i] = sims[i]
		table[i] = Config{ID: uint8(i), Baud: 9600, StopBits: types.StopBits1, Parity: types.ParityNone}
	}
	d := New(files, append([]Option{WithReporter(rec)}, opts...)...)
	require.NoError(t, d.Init(table))
	require.Zero(t, rec.Len())
	return d, sims, rec
}

func TestEndToEndCapacityFour(t *testing.T) {
	d, sims, rec := newTestDriver(t, 1, WithBufferSize(4))

	for _, b := range []byte{1, 2, 3, 4} {
		require.True(t, d.SendByte(0, b))
	}
	require.False(t, d.SendByte(0, 5), "fifth byte must not fit")

	for i := 0; i < 4; i++ {
		d.SendUpdate(0)
	}
	require.Equal(t, []byte{1, 2, 3, 4}, sims[0].Written())

	d.SendUpdate(0)
	require.Len(t, sims[0].Written(), 4, "update on empty buffer must be a no-op")
	require.Zero(t, rec.Len())

	st, _ := d.Stats(0)
	require.Equal(t, uint32(4), st.TxBytes)
}

func TestSendStringPartial(t *testing.T) {
	d, _, rec := newTestDriver(t, 1, WithBufferSize(8))
	require.Equal(t, 3, d.SendString(0, []byte("abc")))

	// Free space is 5; a 9-byte write stops there.
	data := []byte("012345678")
	require.Equal(t, 5, d.SendString(0, data))
	require.Zero(t, d.SendFree(0))

	sim := d.inst[0].regs.(*regs.Sim)
	for i := 0; i < 8; i++ {
		d.SendUpdate(0)
	}
	require.Equal(t, "abc01234", string(sim.Written()))
	require.Zero(t, rec.Len())
}

func TestZeroLengthStringsSkipValidation(t *testing.T) {
	d, _, rec := newTestDriver(t, 1)
	require.Zero(t, d.SendString(9, nil))
	require.Zero(t, d.ReceiveString(9, []byte{}))
	require.Zero(t, rec.Len())
}

func TestInvalidInstanceReportsParam(t *testing.T) {
	d, sims, rec := newTestDriver(t, 2)

	require.False(t, d.SendByte(2, 'x'))
	require.Equal(t, 1, rec.Len())
	require.Equal(t, 1, rec.Count(errcode.InvalidParam))
	r := rec.Reports()[0]
	require.Equal(t, det.Report{Module: det.ModuleUART, Instance: 2, API: det.APISendByte, Kind: errcode.InvalidParam}, r)
	require.Zero(t, d.inst[0].send.Len())
	require.Zero(t, d.inst[1].send.Len())

	rec.Reset()
	_, ok := d.ReceiveByte(7)
	require.False(t, ok)
	require.Zero(t, d.SendString(7, []byte("hi")))
	require.Zero(t, d.ReceiveString(7, make([]byte, 4)))
	_, ok = d.PeekLastByte(7)
	require.False(t, ok)
	d.SendUpdate(7)
	d.ReceiveUpdate(7)

	apis := []det.APIID{}
	for _, r := range rec.Reports() {
		require.Equal(t, errcode.InvalidParam, r.Kind)
		apis = append(apis, r.API)
	}
	require.Equal(t, []det.APIID{
		det.APIReceiveByte, det.APISendString, det.APIReceiveString,
		det.APIPeekLastByte, det.APISendUpdate, det.APIReceiveUpdate,
	}, apis)
	require.Zero(t, sims[0].DataReads())
}

func TestUninitialisedInstance(t *testing.T) {
	rec := &det.Recorder{}
	sim := regs.NewSim()
	d := New([]regs.Registers{sim}, WithReporter(rec))

	require.False(t, d.Ready(0))
	require.False(t, d.SendByte(0, 1))
	require.Equal(t, 1, rec.Count(errcode.InvalidParam))

	sim.Inject('z')
	d.SendUpdate(0)
	d.ReceiveUpdate(0)
	require.Equal(t, 1, rec.Len(), "ticks before Init are silent")
	require.Zero(t, sim.DataReads())

	_, err := d.Port(0)
	require.True(t, errors.Is(err, errcode.InvalidParam))
}

func TestReceiveFramingErrorDiscardsByte(t *testing.T) {
	d, sims, rec := newTestDriver(t, 1)
	sims[0].InjectError(0x7E, 1<<regs.FE)

	d.ReceiveUpdate(0)

	require.Zero(t, d.Buffered(0))
	require.Equal(t, 1, sims[0].DataReads(), "data register must be read once to clear RXC")
	require.Zero(t, sims[0].Pending())
	require.Equal(t, 1, rec.Len())
	require.Equal(t, 1, rec.Count(errcode.Framing))
	require.Equal(t, det.APIReceiveUpdate, rec.Reports()[0].API)
}

func TestReceiveAllLineErrorsReportInOrder(t *testing.T) {
	d, sims, rec := newTestDriver(t, 1)
	sims[0].InjectError(0x01, 1<<regs.FE|1<<regs.DOR|1<<regs.PE)
	sims[0].Inject('k')

	d.ReceiveUpdate(0)
	var kinds []errcode.Code
	for _, r := range rec.Reports() {
		kinds = append(kinds, r.Kind)
	}
	require.Equal(t, []errcode.Code{errcode.Framing, errcode.Overrun, errcode.Parity}, kinds)
	require.Equal(t, 1, sims[0].DataReads())

	d.ReceiveUpdate(0)
	b, ok := d.ReceiveByte(0)
	require.True(t, ok)
	require.Equal(t, byte('k'), b)

	st, _ := d.Stats(0)
	require.Equal(t, uint32(3), st.LineErrors)
	require.Equal(t, uint32(1), st.RxBytes)
}

func TestReceiveIdleIsNoop(t *testing.T) {
	d, sims, rec := newTestDriver(t, 1)
	d.ReceiveUpdate(0)
	require.Zero(t, sims[0].DataReads())
	require.Zero(t, rec.Len())
}

func TestReceiveStringAndPeek(t *testing.T) {
	d, sims, _ := newTestDriver(t, 1)
	_, ok := d.PeekLastByte(0)
	require.False(t, ok)

	sims[0].Inject('h', 'e', 'y')
	for i := 0; i < 3; i++ {
		d.ReceiveUpdate(0)
	}
	b, ok := d.PeekLastByte(0)
	require.True(t, ok)
	require.Equal(t, byte('y'), b)
	require.Equal(t, 3, d.Buffered(0), "peek must not consume")

	buf := make([]byte, 8)
	n := d.ReceiveString(0, buf)
	require.Equal(t, "hey", string(buf[:n]))
	require.Zero(t, d.ReceiveString(0, buf))
}

func TestTxBusyPolicies(t *testing.T) {
	t.Run("report_drop", func(t *testing.T) {
		d, sims, rec := newTestDriver(t, 1)
		sims[0].SetTxReady(false)
		d.SendString(0, []byte{9, 8})
		d.SendUpdate(0)
		require.Empty(t, sims[0].Written())
		require.Equal(t, 1, rec.Count(errcode.TxBusy))
		require.Equal(t, 1, d.inst[0].send.Len(), "the busy byte is lost, not requeued")

		sims[0].SetTxReady(true)
		d.SendUpdate(0)
		require.Equal(t, []byte{8}, sims[0].Written())
	})
	t.Run("drop", func(t *testing.T) {
		d, sims, rec := newTestDriver(t, 1, WithTxPolicy(Drop))
		sims[0].SetTxReady(false)
		d.SendByte(0, 9)
		d.SendUpdate(0)
		require.Zero(t, rec.Len())
		st, _ := d.Stats(0)
		require.Equal(t, uint32(1), st.TxDropped)
	})
	t.Run("hold", func(t *testing.T) {
		d, sims, rec := newTestDriver(t, 1, WithTxPolicy(Hold))
		sims[0].SetTxReady(false)
		d.SendByte(0, 9)
		d.SendUpdate(0)
		d.SendUpdate(0)
		require.Zero(t, rec.Len())
		require.Equal(t, 1, d.inst[0].send.Len())

		sims[0].SetTxReady(true)
		d.SendUpdate(0)
		require.Equal(t, []byte{9}, sims[0].Written())
	})
}

func TestRxFullPolicies(t *testing.T) {
	fill := func(d *Driver, sim *regs.Sim) {
		sim.Inject(1, 2, 3)
		for i := 0; i < 3; i++ {
			d.ReceiveUpdate(0)
		}
	}
	t.Run("drop", func(t *testing.T) {
		d, sims, rec := newTestDriver(t, 1, WithBufferSize(2))
		fill(d, sims[0])
		require.Zero(t, rec.Len())
		require.Zero(t, sims[0].Pending())
		st, _ := d.Stats(0)
		require.Equal(t, uint32(1), st.RxDropped)
		b, _ := d.PeekLastByte(0)
		require.Equal(t, byte(2), b)
	})
	t.Run("report_drop", func(t *testing.T) {
		d, sims, rec := newTestDriver(t, 1, WithBufferSize(2), WithRxPolicy(ReportDrop))
		fill(d, sims[0])
		require.Equal(t, 1, rec.Count(errcode.BufferFull))
	})
	t.Run("hold", func(t *testing.T) {
		d, sims, rec := newTestDriver(t, 1, WithBufferSize(2), WithRxPolicy(Hold))
		fill(d, sims[0])
		require.Zero(t, rec.Len())
		require.Equal(t, 1, sims[0].Pending(), "third byte stays in the peripheral")
		d.ReceiveByte(0)
		d.ReceiveUpdate(0)
		b, _ := d.PeekLastByte(0)
		require.Equal(t, byte(3), b)
	})
}

func TestPortStream(t *testing.T) {
	d, sims, _ := newTestDriver(t, 1, WithBufferSize(4))
	p, err := d.Port(0)
	require.NoError(t, err)
	require.Equal(t, uint8(0), p.ID())

	n, err := p.Write([]byte("abcdef"))
	require.Equal(t, 4, n)
	require.True(t, errors.Is(err, errcode.BufferFull))
	require.Error(t, p.WriteByte('g'))

	sims[0].Inject('x', 'y')
	d.Update()
	d.Update()
	require.Equal(t, "ab", string(sims[0].Written()))
	require.Equal(t, 2, p.Buffered())

	c, err := p.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte('x'), c)
	buf := make([]byte, 4)
	n, err = p.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "y", string(buf[:n]))
	_, err = p.ReadByte()
	require.Error(t, err)
}

// Foreground and tick goroutines share each buffer; a looped-back stream must
// survive intact.
func TestConcurrentLoopback(t *testing.T) {
	d, sims, rec := newTestDriver(t, 1, WithBufferSize(16), WithTxPolicy(Hold), WithRxPolicy(Hold))
	sims[0].SetLoopback(true)

	const N = 5000
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				d.SendUpdate(0)
				d.ReceiveUpdate(0)
				runtime.Gosched()
			}
		}
	}()

	got := make([]byte, 0, N)
	sent := 0
	for len(got) < N {
		progress := false
		if sent < N && d.SendByte(0, byte(sent)) {
			sent++
			progress = true
		}
		if b, ok := d.ReceiveByte(0); ok {
			got = append(got, b)
			progress = true
		}
		if !progress {
			runtime.Gosched()
		}
	}
	close(stop)
	wg.Wait()

	for i, b := range got {
		require.Equalf(t, byte(i), b, "mismatch at %d", i)
	}
	require.Zero(t, rec.Len())
}
