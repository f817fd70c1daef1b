package driver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/hashspi/bus"
	"github.com/ardnew/hashspi/pkg"
)

func TestFillQueues_EmptyChip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chips = 1
	require.Equal(t, 2, cfg.LowWater)
	require.Equal(t, 4, cfg.HighWater)
	d := newOffline(t, cfg, newTestSource(16), acceptAll())

	n := d.FillQueues()
	require.Equal(t, 4, n)

	reqs := queued(d)
	require.Len(t, reqs, 4)
	urgent := 0
	for _, r := range reqs {
		assert.Equal(t, bus.RegJobSubmit, r.Register)
		if r.Urgent {
			urgent++
		}
	}
	assert.Equal(t, 1, urgent)
	assert.True(t, reqs[0].Urgent, "urgent job must be dispatched first")
	assert.Equal(t, 4, d.chips[0].occupancy())
}

func TestFillQueues_FullChipIsLeftAlone(t *testing.T) {
	d := newOffline(t, fastConfig(1), newTestSource(16), acceptAll())

	require.Equal(t, 4, d.FillQueues())
	assert.Equal(t, 0, d.FillQueues())
	assert.Equal(t, 4, d.chips[0].occupancy())
}

func TestFillQueues_HighFillOnlyAtOrBelowLow(t *testing.T) {
	src := newTestSource(3)
	d := newOffline(t, fastConfig(1), src, acceptAll())

	require.Equal(t, 3, d.FillQueues())
	require.Equal(t, 3, d.chips[0].occupancy())

	src.add(8)
	assert.Equal(t, 0, d.FillQueues(), "occupancy above low water must not refill")
}

func TestFillQueues_PhaseMajorAcrossChips(t *testing.T) {
	d := newOffline(t, fastConfig(2), newTestSource(2), acceptAll())

	require.Equal(t, 2, d.FillQueues())

	reqs := queued(d)
	require.Len(t, reqs, 2)
	assert.Equal(t, uint8(0), reqs[0].Chip)
	assert.Equal(t, uint8(1), reqs[1].Chip)
	assert.True(t, reqs[0].Urgent)
	assert.True(t, reqs[1].Urgent)
}

func TestFillQueues_SkipsDisabledChips(t *testing.T) {
	cfg := fastConfig(3)
	cfg.Disabled = []int{1}
	d := newOffline(t, cfg, newTestSource(32), acceptAll())

	require.Equal(t, 8, d.FillQueues())
	assert.Empty(t, tableIDs(d, 1))
	for _, r := range queued(d) {
		assert.NotEqual(t, uint8(1), r.Chip)
	}
}

func TestFillQueues_NoWork(t *testing.T) {
	d := newOffline(t, fastConfig(2), newTestSource(0), acceptAll())
	assert.Equal(t, 0, d.FillQueues())
	assert.Equal(t, 0, d.txq.Len())
}

func TestFillQueues_TaskIDsIncreasePerChip(t *testing.T) {
	d := newOffline(t, fastConfig(2), newTestSource(32), acceptAll())
	require.Equal(t, 8, d.FillQueues())

	last := map[uint8]uint16{}
	for _, r := range queued(d) {
		assert.Greater(t, r.TaskID, last[r.Chip])
		last[r.Chip] = r.TaskID
	}
	// Tables are newest first.
	for chip := 0; chip < 2; chip++ {
		ids := tableIDs(d, chip)
		require.Len(t, ids, 4)
		for i := 1; i < len(ids); i++ {
			assert.Greater(t, ids[i-1], ids[i])
		}
	}
}

func TestFillQueues_RejectsOversizeWork(t *testing.T) {
	src := &testSource{}
	src.queue = []*Work{
		NewWork(make([]byte, bus.MaxJobData+1)),
		NewWork([]byte("fits")),
	}
	d := newOffline(t, fastConfig(1), src, acceptAll())

	require.Equal(t, 1, d.FillQueues())
	discarded, _ := src.counts()
	assert.Equal(t, 1, discarded)
	assert.Equal(t, uint64(1), d.Stats().Oversize)
}

func TestDispatch_WireFrame(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
	src := &testSource{queue: []*Work{NewWork(data)}}
	d := newOffline(t, fastConfig(4), src, acceptAll())

	require.True(t, d.dispatch(d.chips[3], false))
	reqs := queued(d)
	require.Len(t, reqs, 1)

	r := reqs[0]
	f := r.Frame()
	var buf [bus.MaxFrame]byte
	size := f.MarshalTo(buf[:])
	wire := buf[:size]

	assert.Equal(t, byte(3), wire[0])
	assert.Equal(t, byte(bus.RegJobSubmit), wire[1])
	payload := r.Payload[:r.Size]
	assert.True(t, bytes.HasSuffix(wire, payload))

	id, got, ok := bus.DecodeJob(payload)
	require.True(t, ok)
	assert.Equal(t, r.TaskID, id)
	assert.Equal(t, data, got)
}

func TestDispatch_SkipsIDsStillInTable(t *testing.T) {
	d := newOffline(t, fastConfig(1), newTestSource(4), acceptAll())
	require.True(t, d.dispatch(d.chips[0], false))
	first := tableIDs(d, 0)[0]

	// Wind the counter around so the next id collides with the open job.
	d.tasks.next = first
	require.True(t, d.dispatch(d.chips[0], false))
	ids := tableIDs(d, 0)
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestDispatch_RequestPoolExhausted(t *testing.T) {
	cfg := fastConfig(1)
	cfg.PoolBatch = 2
	cfg.RequestLimit = 2
	src := newTestSource(8)
	d := newOffline(t, cfg, src, acceptAll())

	assert.Equal(t, 2, d.FillQueues())
	// The job that found no request node goes back to pending.
	assert.Equal(t, 2, d.pending.Len())
	assert.Equal(t, 2, d.chips[0].occupancy())
}

func TestQueueWork(t *testing.T) {
	d := newOffline(t, fastConfig(1), newTestSource(0), acceptAll())

	require.ErrorIs(t, d.QueueWork(nil), pkg.ErrInvalidParameter)
	require.NoError(t, d.QueueWork(NewWork([]byte("a"))))
	require.NoError(t, d.QueueWork(NewWork([]byte("b"))))
	assert.Equal(t, 2, d.pending.Len())

	require.Equal(t, 2, d.FillQueues())
	assert.Equal(t, 0, d.pending.Len())
}
