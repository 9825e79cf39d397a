package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/journal"
)

const (
	entryColumns  = "j.id, j.email, j.class_id, j.text, j.created_at, j.prompt_id, p.text AS prompt"
	entryFrom     = " FROM journal AS j LEFT JOIN prompts AS p ON p.id = j.prompt_id"
	promptColumns = "id, class_id, text, created_at, closed_at"
)

type journalRepository struct {
	exec  core.DBExecutor
	clock core.Clock
}

var _ journal.Repository = (*journalRepository)(nil) // interface compliance check

func NewJournalRepository(exec core.DBExecutor, clock core.Clock) *journalRepository {
	return &journalRepository{exec: exec, clock: clock}
}

func (repo journalRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo journalRepository) AddEntry(ctx context.Context, email, classID, text string, promptID *int64, exec ...core.DBExecutor) (journal.Entry, error) {
	exe := repo.getExec(exec)
	e := journal.Entry{
		Email:     email,
		ClassID:   classID,
		Text:      text,
		CreatedAt: repo.clock.UnixNow(),
		PromptID:  null.Int64FromPtr(promptID),
	}
	q := exe.Rebind(`INSERT INTO journal (email, class_id, text, created_at, prompt_id) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	if err := sqlx.GetContext(ctx, exe, &e.ID, q, e.Email, e.ClassID, e.Text, e.CreatedAt, e.PromptID); err != nil {
		return journal.Entry{}, core.NewStorageError("inserting journal entry", err)
	}
	return e, nil
}

func (repo journalRepository) EntriesFor(ctx context.Context, email, classID string) ([]journal.Entry, error) {
	q := `SELECT ` + entryColumns + entryFrom + ` WHERE j.email = ? AND j.class_id = ? ORDER BY j.id DESC`
	entries := []journal.Entry{}
	if err := sqlx.SelectContext(ctx, repo.exec, &entries, repo.exec.Rebind(q), email, classID); err != nil {
		return nil, core.NewStorageError("listing journal entries", err)
	}
	return entries, nil
}

func (repo journalRepository) EntriesBetween(ctx context.Context, classID string, after, before int64) ([]journal.Entry, error) {
	where := []string{"j.class_id = ?"}
	args := []interface{}{classID}
	if after > 0 {
		where = append(where, "? < j.created_at")
		args = append(args, after)
	}
	if before > 0 {
		where = append(where, "j.created_at < ?")
		args = append(args, before)
	}
	q := `SELECT ` + entryColumns + entryFrom + ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY j.id ASC`

	entries := []journal.Entry{}
	if err := sqlx.SelectContext(ctx, repo.exec, &entries, repo.exec.Rebind(q), args...); err != nil {
		return nil, core.NewStorageError("listing journal entries", err)
	}
	return entries, nil
}

func (repo journalRepository) getPrompt(ctx context.Context, exe core.DBExecutor, op, query string, args ...interface{}) (journal.Prompt, error) {
	var p journal.Prompt
	if err := sqlx.GetContext(ctx, exe, &p, exe.Rebind(query), args...); err != nil {
		if err == sql.ErrNoRows {
			return journal.Prompt{}, journal.ErrPromptNotFound
		}
		return journal.Prompt{}, core.NewStorageError(op, err)
	}
	return p, nil
}

func (repo journalRepository) CreatePrompt(ctx context.Context, classID, text string) (journal.Prompt, error) {
	q := `INSERT INTO prompts (class_id, text, created_at) VALUES (?, ?, ?) RETURNING ` + promptColumns
	return repo.getPrompt(ctx, repo.exec, "inserting prompt", q, classID, text, repo.clock.UnixNow())
}

func (repo journalRepository) GetPrompt(ctx context.Context, id int64, exec ...core.DBExecutor) (journal.Prompt, error) {
	q := `SELECT ` + promptColumns + ` FROM prompts WHERE id = ?`
	return repo.getPrompt(ctx, repo.getExec(exec), "finding prompt", q, id)
}

func (repo journalRepository) ClosePrompt(ctx context.Context, id int64) (journal.Prompt, error) {
	q := `UPDATE prompts SET closed_at = ? WHERE id = ? RETURNING ` + promptColumns
	return repo.getPrompt(ctx, repo.exec, "closing prompt", q, repo.clock.UnixNow(), id)
}

func (repo journalRepository) PromptAgain(ctx context.Context, id int64) (journal.Prompt, error) {
	q := `INSERT INTO prompts (class_id, text, created_at)
		SELECT class_id, text, ? FROM prompts WHERE id = ?
		RETURNING ` + promptColumns
	return repo.getPrompt(ctx, repo.exec, "copying prompt", q, repo.clock.UnixNow(), id)
}

func (repo journalRepository) AllPrompts(ctx context.Context, classID string) ([]journal.Prompt, error) {
	q := `SELECT ` + promptColumns + ` FROM prompts
		WHERE class_id = ?
		AND (closed_at IS NULL OR id IN (SELECT prompt_id FROM journal WHERE prompt_id IS NOT NULL))
		ORDER BY id ASC`
	prompts := []journal.Prompt{}
	if err := sqlx.SelectContext(ctx, repo.exec, &prompts, repo.exec.Rebind(q), classID); err != nil {
		return nil, core.NewStorageError("listing prompts", err)
	}
	return prompts, nil
}

func (repo journalRepository) OpenPromptsFor(ctx context.Context, email, classID string) ([]journal.Prompt, error) {
	q := `SELECT ` + promptColumns + ` FROM prompts
		WHERE class_id = ?
		AND closed_at IS NULL
		AND id NOT IN (SELECT prompt_id FROM journal WHERE email = ? AND prompt_id IS NOT NULL)
		ORDER BY id ASC`
	prompts := []journal.Prompt{}
	if err := sqlx.SelectContext(ctx, repo.exec, &prompts, repo.exec.Rebind(q), classID, email); err != nil {
		return nil, core.NewStorageError("listing open prompts", err)
	}
	return prompts, nil
}

func (repo journalRepository) Responses(ctx context.Context, promptID int64) ([]journal.Response, error) {
	q := `SELECT p.text AS prompt, COALESCE(NULLIF(u.name, ''), u.google_name, j.email) AS name, j.email, j.text
		FROM journal AS j
		JOIN prompts AS p ON p.id = j.prompt_id
		LEFT JOIN users AS u ON u.email = j.email
		WHERE j.prompt_id = ?
		ORDER BY j.id ASC`
	responses := []journal.Response{}
	if err := sqlx.SelectContext(ctx, repo.exec, &responses, repo.exec.Rebind(q), promptID); err != nil {
		return nil, core.NewStorageError("listing prompt responses", err)
	}
	return responses, nil
}
