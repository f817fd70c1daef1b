package driver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/bus/hal/sim"
	"github.com/ardnew/hashspi/pkg"
)

func testChain(chips int) *sim.Chain {
	return sim.New(sim.Config{
		Chips:        chips,
		Cores:        8,
		QueueDepth:   4,
		JobTicks:     4,
		NoncesPerJob: 2,
	})
}

// runFill calls FillQueues until the returned stop function is called.
func runFill(d *Driver) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tick := time.NewTicker(time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				d.FillQueues()
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func sumChips(st Stats, f func(ChipStats) uint64) uint64 {
	var n uint64
	for _, c := range st.Chips {
		n += f(c)
	}
	return n
}

func TestNew_Errors(t *testing.T) {
	chain := testChain(1)
	src := newTestSource(0)
	val := acceptAll()

	bad := DefaultConfig()
	bad.Chips = 0
	_, err := New(bad, chain, src, val)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)

	_, err = New(DefaultConfig(), nil, src, val)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
	_, err = New(DefaultConfig(), chain, nil, val)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
	_, err = New(DefaultConfig(), chain, src, nil)
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestDriver_Run(t *testing.T) {
	chain := testChain(2)
	src := &testSource{gen: true}
	val := simValidator(2)
	d, err := New(fastConfig(2), chain, src, val)
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	assert.True(t, d.IsRunning())
	assert.Equal(t, []int{0, 1}, d.Active())
	for chip := 0; chip < 2; chip++ {
		assert.Equal(t, 1, chain.Resets(chip))
		assert.Equal(t, bus.NonceStride(8), chain.Stride(chip))
	}

	stop := runFill(d)
	require.Eventually(t, func() bool {
		return val.count() >= 20
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		tel, _ := d.Telemetry(1)
		return !tel.Updated.IsZero()
	}, 5*time.Second, 5*time.Millisecond)
	stop()

	st := d.Stats()
	require.Len(t, st.Chips, 2)
	assert.Positive(t, sumChips(st, func(c ChipStats) uint64 { return c.Good }))
	assert.Positive(t, sumChips(st, func(c ChipStats) uint64 { return c.Completed }))
	assert.Zero(t, sumChips(st, func(c ChipStats) uint64 { return c.Bad }))
	assert.Positive(t, d.DrainAcceptedNonceCount())
	for _, c := range st.Chips {
		assert.Equal(t, 8, c.Cores)
	}

	// Every chip saw its task ids in dispatch order.
	for chip := 0; chip < 2; chip++ {
		ids := chain.Submitted(chip)
		require.NotEmpty(t, ids)
		for i := 1; i < len(ids); i++ {
			require.Greater(t, ids[i], ids[i-1], "chip %d", chip)
		}
	}

	require.NoError(t, d.Stop())
	assert.False(t, d.IsRunning())
	assert.ErrorIs(t, d.Stop(), pkg.ErrNotRunning)

	// Every node is back in its pool.
	for _, p := range d.Stats().Pools {
		assert.Zero(t, p.InUse(), p.Name)
	}
	discarded, completed := src.counts()
	assert.Equal(t, src.made, discarded+completed)
}

func TestDriver_StartTwice(t *testing.T) {
	d, err := New(fastConfig(1), testChain(1), newTestSource(0), acceptAll())
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	assert.ErrorIs(t, d.Start(context.Background()), pkg.ErrAlreadyRunning)
}

// gatedChain holds the first transaction until release is closed.
type gatedChain struct {
	*sim.Chain
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedChain) Transact(ctx context.Context, tx []byte, rxLen int) (int, []byte, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Chain.Transact(ctx, tx, rxLen)
}

func TestDriver_StartDuringDetection(t *testing.T) {
	chain := &gatedChain{
		Chain:   testChain(1),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	d, err := New(fastConfig(1), chain, newTestSource(0), acceptAll())
	require.NoError(t, err)

	started := make(chan error, 1)
	go func() { started <- d.Start(context.Background()) }()
	<-chain.entered

	assert.ErrorIs(t, d.Start(context.Background()), pkg.ErrAlreadyRunning)
	assert.ErrorIs(t, d.Stop(), pkg.ErrNotRunning)
	assert.False(t, d.IsRunning())

	close(chain.release)
	require.NoError(t, <-started)
	assert.True(t, d.IsRunning())
	require.NoError(t, d.Stop())
}

func TestDriver_RestartRedetects(t *testing.T) {
	chain := testChain(2)
	d, err := New(fastConfig(2), chain, newTestSource(0), acceptAll())
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, []int{0, 1}, d.Active())
	require.NoError(t, d.Stop())

	chain.SetPresent(1, false)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	assert.Equal(t, []int{0}, d.Active())
	_, ok := d.Telemetry(1)
	assert.False(t, ok)
}

func TestDriver_NoChips(t *testing.T) {
	chain := testChain(2)
	chain.SetPresent(0, false)
	chain.SetPresent(1, false)
	d, err := New(fastConfig(2), chain, newTestSource(0), acceptAll())
	require.NoError(t, err)

	assert.ErrorIs(t, d.Start(context.Background()), pkg.ErrNoChip)
	assert.False(t, d.IsRunning())
}

func TestDriver_AbsentAndDisabledChips(t *testing.T) {
	chain := testChain(4)
	chain.SetPresent(1, false)
	chain.SetSignature(3, [bus.SignatureSize]byte{1, 2, 3, 4})
	cfg := fastConfig(4)
	cfg.Disabled = []int{2}
	d, err := New(cfg, chain, newTestSource(0), acceptAll())
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	assert.Equal(t, []int{0}, d.Active())
	assert.Zero(t, chain.Resets(2), "disabled chip must not be touched")
	_, ok := d.Telemetry(3)
	assert.False(t, ok)
}

func TestDriver_SurvivesBusFaults(t *testing.T) {
	chain := testChain(1)
	val := simValidator(2)
	d, err := New(fastConfig(1), chain, &testSource{gen: true}, val)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	stop := runFill(d)
	defer stop()

	chain.InjectError(3)
	chain.InjectShort(2)

	require.Eventually(t, func() bool {
		st := d.Stats().Chips[0]
		return st.TxErrors == 5 && st.ShortTx == 2
	}, 5*time.Second, 5*time.Millisecond)

	before := val.count()
	require.Eventually(t, func() bool {
		return val.count() > before+5
	}, 5*time.Second, 5*time.Millisecond)
}

func TestDriver_CountsHardwareErrors(t *testing.T) {
	chain := sim.New(sim.Config{
		Chips:        1,
		Cores:        4,
		QueueDepth:   4,
		JobTicks:     4,
		NoncesPerJob: 2,
		BadEvery:     3,
	})
	d, err := New(fastConfig(1), chain, &testSource{gen: true}, simValidator(2))
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	stop := runFill(d)
	defer stop()

	require.Eventually(t, func() bool {
		st := d.Stats().Chips[0]
		return st.Bad > 0 && st.Good > 0
	}, 5*time.Second, 5*time.Millisecond)
}

func TestDriver_FlushWhileRunning(t *testing.T) {
	chain := testChain(2)
	val := simValidator(2)
	src := &testSource{gen: true}
	d, err := New(fastConfig(2), chain, src, val)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()
	stop := runFill(d)
	defer stop()

	require.Eventually(t, func() bool { return val.count() > 0 }, 5*time.Second, 5*time.Millisecond)
	d.Flush()

	require.Eventually(t, func() bool {
		return chain.Resets(0) == 2 && chain.Resets(1) == 2
	}, 5*time.Second, 5*time.Millisecond)

	before := val.count()
	require.Eventually(t, func() bool {
		return val.count() > before+5
	}, 5*time.Second, 5*time.Millisecond)
}
