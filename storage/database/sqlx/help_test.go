package sqlxrepos_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/storage/database/sqlx"
	"github.com/gigamonkey/help/tests"
)

func newHelpRepo(t *testing.T, start int64) (help.Repository, func(int64)) {
	db := testutil.PrepareDB(t)
	clock, setNow := testutil.FixedClock(start)
	return sqlxrepos.NewHelpRepository(db, clock), setNow
}

func ids(items []help.HelpRequest) []int64 {
	out := make([]int64, 0, len(items))
	for _, r := range items {
		out = append(out, r.ID)
	}
	return out
}

func TestHelpRepository_RequestHelp(t *testing.T) {
	ctx := context.Background()
	repo, _ := newHelpRepo(t, 100)

	r1, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "X", "Y")
	require.NoError(t, err)

	assert.NotZero(t, r1.ID)
	assert.Equal(t, "ann@test.cd", r1.Requester)
	assert.Equal(t, "C", r1.ClassID)
	assert.Equal(t, "X", r1.Problem)
	assert.Equal(t, "Y", r1.Tried)
	assert.Equal(t, int64(100), r1.CreatedAt)
	assert.False(t, r1.Helper.Valid)
	assert.False(t, r1.StartTime.Valid)
	assert.False(t, r1.EndTime.Valid)
	assert.False(t, r1.DiscardTime.Valid)
	assert.Equal(t, help.StatusQueued, r1.Status())

	got, err := repo.GetHelp(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, r1, got)

	// a new request is only in the queue
	queue, err := repo.List(ctx, "C", help.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, []int64{r1.ID}, ids(queue))
	for _, st := range []help.Status{help.StatusInProgress, help.StatusDone, help.StatusDiscarded} {
		items, err := repo.List(ctx, "C", st)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items, st.String())
	}
}

func TestHelpRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newHelpRepo(t, 100)

	tests := []struct {
		name string
		op   func() (help.HelpRequest, error)
	}{
		{name: "get", op: func() (help.HelpRequest, error) { return repo.GetHelp(ctx, 42) }},
		{name: "take", op: func() (help.HelpRequest, error) { return repo.Take(ctx, 42, "bob") }},
		{name: "finish", op: func() (help.HelpRequest, error) { return repo.FinishHelp(ctx, 42) }},
		{name: "requeue", op: func() (help.HelpRequest, error) { return repo.RequeueHelp(ctx, 42) }},
		{name: "reopen", op: func() (help.HelpRequest, error) { return repo.ReopenHelp(ctx, 42) }},
		{name: "discard", op: func() (help.HelpRequest, error) { return repo.DiscardHelp(ctx, 42) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.op()
			assert.Equal(t, help.ErrNotFound, err)
		})
	}
}

func TestHelpRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	repo, setNow := newHelpRepo(t, 100)

	r, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "X", "")
	require.NoError(t, err)

	setNow(150)
	r, err = repo.Take(ctx, r.ID, "alice@test.cd")
	require.NoError(t, err)
	assert.Equal(t, help.StatusInProgress, r.Status())
	assert.Equal(t, "alice@test.cd", r.Helper.String)
	assert.Equal(t, int64(150), r.StartTime.Int64)
	assert.False(t, r.EndTime.Valid)
	assert.False(t, r.DiscardTime.Valid)

	setNow(200)
	r, err = repo.FinishHelp(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, help.StatusDone, r.Status())
	assert.Equal(t, int64(200), r.EndTime.Int64)
	assert.Equal(t, "alice@test.cd", r.Helper.String, "helper unchanged")
	assert.Equal(t, int64(150), r.StartTime.Int64, "start_time unchanged")

	// last take wins, even on a done item
	setNow(250)
	r, err = repo.Take(ctx, r.ID, "bob@test.cd")
	require.NoError(t, err)
	assert.Equal(t, help.StatusInProgress, r.Status())
	assert.Equal(t, "bob@test.cd", r.Helper.String)
	assert.False(t, r.EndTime.Valid)

	// discard is idempotent in status
	r, err = repo.DiscardHelp(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, help.StatusDiscarded, r.Status())
	setNow(260)
	r, err = repo.DiscardHelp(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, help.StatusDiscarded, r.Status())

	// finishing a discarded item clears the discard marker
	r, err = repo.FinishHelp(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, help.StatusDone, r.Status())
	assert.False(t, r.DiscardTime.Valid)

	// take then requeue looks like a never taken item
	r, err = repo.RequeueHelp(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, help.StatusQueued, r.Status())
	assert.False(t, r.Helper.Valid)
	assert.False(t, r.StartTime.Valid)
	assert.False(t, r.EndTime.Valid)
	assert.False(t, r.DiscardTime.Valid)

	queue, err := repo.List(ctx, "C", help.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, []int64{r.ID}, ids(queue))
}

func TestHelpRepository_Next(t *testing.T) {
	ctx := context.Background()
	repo, setNow := newHelpRepo(t, 100)

	// nothing to claim
	_, err := repo.Next(ctx, "C", "bob@test.cd")
	assert.Equal(t, help.ErrEmptyQueue, err)

	// the oldest request is claimed first
	r1, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "X", "Y")
	require.NoError(t, err)
	setNow(200)
	r2, err := repo.RequestHelp(ctx, "ben@test.cd", "C", "X", "Y")
	require.NoError(t, err)
	_, err = repo.RequestHelp(ctx, "cat@test.cd", "D", "other class", "")
	require.NoError(t, err)

	setNow(300)
	got, err := repo.Next(ctx, "C", "bob@test.cd")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, got.ID)
	assert.Equal(t, "bob@test.cd", got.Helper.String)
	assert.Equal(t, int64(300), got.StartTime.Int64)
	assert.Equal(t, help.StatusInProgress, got.Status())

	queue, err := repo.List(ctx, "C", help.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, []int64{r2.ID}, ids(queue))

	inProgress, err := repo.List(ctx, "C", help.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, []int64{r1.ID}, ids(inProgress))

	got, err = repo.Next(ctx, "C", "bob@test.cd")
	require.NoError(t, err)
	assert.Equal(t, r2.ID, got.ID)

	// class D is untouched; class C is now empty and stays unchanged
	_, err = repo.Next(ctx, "C", "bob@test.cd")
	assert.Equal(t, help.ErrEmptyQueue, err)
	inProgress, err = repo.List(ctx, "C", help.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, []int64{r1.ID, r2.ID}, ids(inProgress))

	other, err := repo.List(ctx, "D", help.StatusQueued)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestHelpRepository_NextTieBreak(t *testing.T) {
	ctx := context.Background()
	repo, _ := newHelpRepo(t, 100)

	// same second: insertion order wins
	r1, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "first", "")
	require.NoError(t, err)
	r2, err := repo.RequestHelp(ctx, "ben@test.cd", "C", "second", "")
	require.NoError(t, err)

	queue, err := repo.List(ctx, "C", help.StatusQueued)
	require.NoError(t, err)
	assert.Equal(t, []int64{r1.ID, r2.ID}, ids(queue))

	got, err := repo.Next(ctx, "C", "bob@test.cd")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, got.ID)
}

func TestHelpRepository_NextConcurrent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newHelpRepo(t, 100)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "X", "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := make(map[int64]int)
	for i := 0; i < 2*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := repo.Next(ctx, "C", "bob@test.cd")
			if err != nil {
				assert.Equal(t, help.ErrEmptyQueue, err)
				return
			}
			mu.Lock()
			claimed[r.ID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, claimed, n)
	for id, cnt := range claimed {
		assert.Equal(t, 1, cnt, "request %d claimed more than once", id)
	}
}

func TestHelpRepository_Reopen(t *testing.T) {
	ctx := context.Background()

	t.Run("taken item reopens in progress", func(t *testing.T) {
		repo, _ := newHelpRepo(t, 100)
		r1, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "X", "Y")
		require.NoError(t, err)
		_, err = repo.Take(ctx, r1.ID, "bob@test.cd")
		require.NoError(t, err)

		r1, err = repo.DiscardHelp(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, help.StatusDiscarded, r1.Status())
		assert.Equal(t, "bob@test.cd", r1.Helper.String)

		r1, err = repo.ReopenHelp(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, help.StatusInProgress, r1.Status())
		assert.Equal(t, "bob@test.cd", r1.Helper.String)
	})

	t.Run("never taken item reopens queued", func(t *testing.T) {
		repo, _ := newHelpRepo(t, 100)
		r1, err := repo.RequestHelp(ctx, "ann@test.cd", "C", "X", "Y")
		require.NoError(t, err)

		_, err = repo.DiscardHelp(ctx, r1.ID)
		require.NoError(t, err)
		discarded, err := repo.List(ctx, "C", help.StatusDiscarded)
		require.NoError(t, err)
		assert.Equal(t, []int64{r1.ID}, ids(discarded))

		r1, err = repo.ReopenHelp(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, help.StatusQueued, r1.Status())
	})
}

func TestHelpRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo, setNow := newHelpRepo(t, 100)

	mk := func(requester string, at int64) help.HelpRequest {
		setNow(at)
		r, err := repo.RequestHelp(ctx, requester, "C", "X", "")
		require.NoError(t, err)
		return r
	}
	queued := mk("ann@test.cd", 100)
	inProgress := mk("ann@test.cd", 110)
	done := mk("ben@test.cd", 120)
	discarded := mk("ben@test.cd", 130)
	doneThenDiscarded := mk("cat@test.cd", 140)

	_, err := repo.Take(ctx, inProgress.ID, "bob@test.cd")
	require.NoError(t, err)
	_, err = repo.Take(ctx, done.ID, "bob@test.cd")
	require.NoError(t, err)
	_, err = repo.FinishHelp(ctx, done.ID)
	require.NoError(t, err)
	_, err = repo.DiscardHelp(ctx, discarded.ID)
	require.NoError(t, err)
	_, err = repo.FinishHelp(ctx, doneThenDiscarded.ID)
	require.NoError(t, err)
	_, err = repo.DiscardHelp(ctx, doneThenDiscarded.ID)
	require.NoError(t, err)

	tests := []struct {
		status help.Status
		want   []int64
	}{
		{status: help.StatusQueued, want: []int64{queued.ID}},
		{status: help.StatusInProgress, want: []int64{inProgress.ID}},
		{status: help.StatusDone, want: []int64{done.ID}},
		{status: help.StatusDiscarded, want: []int64{discarded.ID, doneThenDiscarded.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			items, err := repo.List(ctx, "C", tt.status)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(items))
			for _, r := range items {
				assert.Equal(t, tt.status, r.Status())
			}
		})
	}

	_, err = repo.List(ctx, "C", help.Status("bogus"))
	assert.EqualError(t, err, `unknown help status "bogus"`)

	counts, err := repo.CountByRequester(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ann@test.cd": 2, "ben@test.cd": 2, "cat@test.cd": 1}, counts)
}
