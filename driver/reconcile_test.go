package driver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filled returns an offline single-chip driver holding n dispatched jobs
// with task ids 1..n.
func filled(t *testing.T, n int, val *testValidator) (*Driver, *testSource) {
	t.Helper()
	cfg := fastConfig(1)
	cfg.LowWater = n
	cfg.HighWater = n
	src := newTestSource(n)
	d := newOffline(t, cfg, src, val)
	require.Equal(t, n, d.FillQueues())
	return d, src
}

func TestReconcile_NoNonceSoleEntry(t *testing.T) {
	d, src := filled(t, 1, acceptAll())
	require.Equal(t, []uint16{1}, tableIDs(d, 0))

	o := d.Reconcile(Reply{Chip: 0, Core: 3, TaskID: 1, NoNonce: true})

	assert.Equal(t, OutcomeNoNonce, o)
	assert.Equal(t, []uint16{1}, tableIDs(d, 0))
	_, completed := src.counts()
	assert.Zero(t, completed)
}

func TestReconcile_NoNonceRetiresOlder(t *testing.T) {
	d, src := filled(t, 3, acceptAll())

	o := d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 3, NoNonce: true})

	assert.Equal(t, OutcomeNoNonce, o)
	assert.Equal(t, []uint16{3}, tableIDs(d, 0))
	_, completed := src.counts()
	assert.Equal(t, 2, completed)
}

func TestReconcile_GoodNonceRetiresOlder(t *testing.T) {
	val := acceptAll()
	d, src := filled(t, 3, val)
	require.Equal(t, []uint16{3, 2, 1}, tableIDs(d, 0))

	o := d.Reconcile(Reply{Chip: 0, Core: 7, TaskID: 2, Nonce: 0xCAFEF00D})

	assert.Equal(t, OutcomeGoodNonce, o)
	assert.Equal(t, []uint16{3, 2}, tableIDs(d, 0))

	src.mu.Lock()
	require.Len(t, src.completed, 1)
	assert.Equal(t, uint16(1), src.completed[0].TaskID)
	src.mu.Unlock()

	require.Equal(t, 1, val.count())
	assert.Equal(t, uint16(2), val.submitted[0].job.TaskID)
	assert.Equal(t, 1, val.submitted[0].job.Accepted)
	assert.Equal(t, uint32(0xCAFEF00D), val.submitted[0].nonce)

	st := d.Stats().Chips[0]
	assert.Equal(t, uint64(1), st.Nonces)
	assert.Equal(t, uint64(1), st.Good)
	assert.Equal(t, uint64(1), st.Completed)
	require.Len(t, st.CoreGood, 8)
	assert.Equal(t, uint64(1), st.CoreGood[7])
}

func TestReconcile_MultipleNoncesPerJob(t *testing.T) {
	val := acceptAll()
	d, _ := filled(t, 1, val)

	assert.Equal(t, OutcomeGoodNonce, d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 1, Nonce: 1}))
	assert.Equal(t, OutcomeGoodNonce, d.Reconcile(Reply{Chip: 0, Core: 2, TaskID: 1, Nonce: 2}))

	assert.Equal(t, []uint16{1}, tableIDs(d, 0))
	require.Equal(t, 2, val.count())
	assert.Equal(t, 2, val.submitted[1].job.Accepted)
}

func TestReconcile_BadNonceKeepsJobOpen(t *testing.T) {
	val := &testValidator{valid: func(*Job, uint32) bool { return false }}
	d, src := filled(t, 2, val)

	o := d.Reconcile(Reply{Chip: 0, Core: 5, TaskID: 2, Nonce: 42})

	assert.Equal(t, OutcomeBadNonce, o)
	assert.Equal(t, []uint16{2, 1}, tableIDs(d, 0))
	_, completed := src.counts()
	assert.Zero(t, completed)
	assert.Zero(t, val.count())

	st := d.Stats().Chips[0]
	assert.Equal(t, uint64(1), st.Bad)
	assert.Equal(t, uint64(1), st.CoreBad[5])
	assert.Zero(t, d.DrainAcceptedNonceCount())
}

func TestReconcile_BadWorkLeavesTableUnchanged(t *testing.T) {
	d, src := filled(t, 3, acceptAll())
	before := tableIDs(d, 0)

	o := d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 999, Nonce: 1})

	assert.Equal(t, OutcomeBadWork, o)
	assert.Equal(t, before, tableIDs(d, 0))
	_, completed := src.counts()
	assert.Zero(t, completed)

	st := d.Stats().Chips[0]
	assert.Equal(t, uint64(1), st.BadWork)
	assert.Equal(t, uint64(1), st.Nonces)
}

func TestReconcile_NoWork(t *testing.T) {
	d := newOffline(t, fastConfig(1), newTestSource(0), acceptAll())

	o := d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 1, Nonce: 1})

	assert.Equal(t, OutcomeNoWork, o)
	assert.Equal(t, uint64(1), d.Stats().Chips[0].NoWork)
}

func TestReconcile_InactiveChip(t *testing.T) {
	cfg := fastConfig(2)
	cfg.Disabled = []int{1}
	d := newOffline(t, cfg, newTestSource(0), acceptAll())

	assert.Equal(t, OutcomeBadWork, d.Reconcile(Reply{Chip: 1, TaskID: 1}))
	assert.Equal(t, OutcomeBadWork, d.Reconcile(Reply{Chip: 200, TaskID: 1}))
}

func TestReconcile_LaterReplyRetiresEveryEarlierTask(t *testing.T) {
	d, src := filled(t, 4, acceptAll())
	require.Equal(t, []uint16{4, 3, 2, 1}, tableIDs(d, 0))

	require.Equal(t, OutcomeGoodNonce, d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 3, Nonce: 9}))

	assert.Equal(t, []uint16{4, 3}, tableIDs(d, 0))
	src.mu.Lock()
	defer src.mu.Unlock()
	require.Len(t, src.completed, 2)
	// Oldest retired first.
	assert.Equal(t, uint16(1), src.completed[0].TaskID)
	assert.Equal(t, uint16(2), src.completed[1].TaskID)
}

func TestDrainAcceptedNonceCount(t *testing.T) {
	d, _ := filled(t, 1, acceptAll())

	for i := 0; i < 3; i++ {
		d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 1, Nonce: uint32(i)})
	}

	assert.Equal(t, uint64(3), d.DrainAcceptedNonceCount())
	assert.Zero(t, d.DrainAcceptedNonceCount())
	assert.Equal(t, uint64(3), d.Stats().Accepted)
}

func TestOutcome_String(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{OutcomeGoodNonce, "good-nonce"},
		{OutcomeNoNonce, "no-nonce"},
		{OutcomeBadNonce, "bad-nonce"},
		{OutcomeBadWork, "bad-work"},
		{OutcomeNoWork, "no-work"},
		{Outcome(99), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.o.String())
	}
}

func TestReconcile_JobRetiredDuringValidation(t *testing.T) {
	val := acceptAll()
	d, src := filled(t, 3, val)
	require.Equal(t, []uint16{3, 2, 1}, tableIDs(d, 0))

	// While task 1 is being validated, a reply for task 3 retires it.
	var inner Outcome
	val.valid = func(j *Job, _ uint32) bool {
		if j.TaskID == 1 {
			inner = d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: 3, NoNonce: true})
		}
		return true
	}

	o := d.Reconcile(Reply{Chip: 0, Core: 2, TaskID: 1, Nonce: 5})

	assert.Equal(t, OutcomeNoNonce, inner)
	assert.Equal(t, OutcomeBadWork, o)
	assert.Equal(t, []uint16{3}, tableIDs(d, 0), "newer entries survive")
	assert.Zero(t, val.count())
	assert.Zero(t, d.DrainAcceptedNonceCount())
	_, completed := src.counts()
	assert.Equal(t, 2, completed)
}

func TestReconcile_Concurrent(t *testing.T) {
	const jobs = 16
	val := acceptAll()
	d, src := filled(t, jobs, val)

	var wg sync.WaitGroup
	for task := uint16(1); task <= jobs; task++ {
		wg.Add(1)
		go func(task uint16) {
			defer wg.Done()
			d.Reconcile(Reply{Chip: 0, Core: 1, TaskID: task, Nonce: uint32(task)})
		}(task)
	}
	wg.Wait()

	ids := tableIDs(d, 0)
	require.NotEmpty(t, ids)
	assert.Equal(t, uint16(jobs), ids[0], "the newest job is never retired")
	_, completed := src.counts()
	assert.Equal(t, jobs, completed+len(ids))
	assert.Equal(t, jobs-completed, d.jobs.Stats().InUse())
}
