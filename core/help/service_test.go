package help_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/help"
	"github.com/gigamonkey/help/storage/database/sqlx"
	"github.com/gigamonkey/help/tests"
)

type names map[string]string

func (n names) DisplayName(_ context.Context, identity string) (string, bool, error) {
	name, ok := n[identity]
	return name, ok, nil
}

type mailRecorder struct {
	mu   sync.Mutex
	msgs []*core.EmailMessage
}

func (m *mailRecorder) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, messages...)
}

func newService(t *testing.T) (*help.Service, *mailRecorder) {
	db := testutil.PrepareDB(t)
	clock, _ := testutil.FixedClock(100)
	mail := new(mailRecorder)
	dir := names{"ann@test.cd": "Ann", "hal@test.cd": "Hal"}
	return help.NewService(sqlxrepos.NewHelpRepository(db, clock), dir, mail, testutil.NewLogger()), mail
}

func TestService_Request(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Request(ctx, "ann@test.cd", "csa", help.NewRequest{Problem: " "})
	assert.Error(t, err)

	r, err := svc.Request(ctx, "ann@test.cd", "csa", help.NewRequest{Problem: " X ", Tried: " Y "})
	require.NoError(t, err)
	assert.Equal(t, "X", r.Problem)
	assert.Equal(t, "Y", r.Tried)
	assert.Equal(t, "Ann", r.Name.String)

	// unknown names stay null
	r, err = svc.Request(ctx, "zed@test.cd", "csa", help.NewRequest{Problem: "X"})
	require.NoError(t, err)
	assert.False(t, r.Name.Valid)
}

func TestService_classScope(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	r, err := svc.Request(ctx, "ann@test.cd", "csa", help.NewRequest{Problem: "X"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "itp", r.ID)
	assert.Equal(t, help.ErrNotFound, err)

	ops := map[string]func() (help.HelpRequest, error){
		"take":    func() (help.HelpRequest, error) { return svc.Take(ctx, "itp", r.ID, "hal@test.cd") },
		"finish":  func() (help.HelpRequest, error) { return svc.Finish(ctx, "itp", r.ID) },
		"requeue": func() (help.HelpRequest, error) { return svc.Requeue(ctx, "itp", r.ID) },
		"reopen":  func() (help.HelpRequest, error) { return svc.Reopen(ctx, "itp", r.ID) },
		"discard": func() (help.HelpRequest, error) { return svc.Discard(ctx, "itp", r.ID) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			_, err := op()
			assert.Equal(t, help.ErrNotFound, err)
		})
	}

	// nothing changed
	got, err := svc.Get(ctx, "csa", r.ID)
	require.NoError(t, err)
	assert.Equal(t, help.StatusQueued, got.Status())

	_, err = svc.Next(ctx, "itp", "hal@test.cd")
	assert.Equal(t, help.ErrEmptyQueue, err)
}

func TestService_takenNotification(t *testing.T) {
	ctx := context.Background()
	svc, mail := newService(t)

	r1, err := svc.Request(ctx, "ann@test.cd", "csa", help.NewRequest{Problem: "X"})
	require.NoError(t, err)
	r2, err := svc.Request(ctx, "zed@test.cd", "csa", help.NewRequest{Problem: "Z"})
	require.NoError(t, err)

	got, err := svc.Next(ctx, "csa", "hal@test.cd")
	require.NoError(t, err)
	assert.Equal(t, r1.ID, got.ID)
	assert.Equal(t, "Ann", got.Name.String)

	_, err = svc.Take(ctx, "csa", r2.ID, "tess@test.cd")
	require.NoError(t, err)

	// finishing does not notify
	_, err = svc.Finish(ctx, "csa", r1.ID)
	require.NoError(t, err)

	require.Len(t, mail.msgs, 2)
	assert.Equal(t, "ann@test.cd", mail.msgs[0].To[0].Address)
	assert.Equal(t, "help_taken", mail.msgs[0].TemplateName)
	assert.Equal(t, "zed@test.cd", mail.msgs[1].To[0].Address)
	assert.Equal(t, "zed@test.cd", mail.msgs[1].To[0].Name, "falls back to the email")
}

func TestService_lists(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	r1, err := svc.Request(ctx, "ann@test.cd", "csa", help.NewRequest{Problem: "X"})
	require.NoError(t, err)
	r2, err := svc.Request(ctx, "zed@test.cd", "csa", help.NewRequest{Problem: "Y"})
	require.NoError(t, err)
	_, err = svc.Discard(ctx, "csa", r2.ID)
	require.NoError(t, err)

	queue, err := svc.Queue(ctx, "csa")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, r1.ID, queue[0].ID)
	assert.Equal(t, "Ann", queue[0].Name.String)

	discarded, err := svc.Discarded(ctx, "csa")
	require.NoError(t, err)
	require.Len(t, discarded, 1)
	assert.Equal(t, r2.ID, discarded[0].ID)

	inProgress, err := svc.InProgress(ctx, "csa")
	require.NoError(t, err)
	assert.Empty(t, inProgress)
	done, err := svc.Done(ctx, "csa")
	require.NoError(t, err)
	assert.Empty(t, done)

	counts, err := svc.CountByRequester(ctx, "csa")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ann@test.cd": 1, "zed@test.cd": 1}, counts)
}
