package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core"
	"github.com/gigamonkey/help/core/help"
)

const helpColumns = "id, requester, class_id, problem, tried, created_at, helper, start_time, end_time, discard_time"

var statusPredicates = map[help.Status]string{
	help.StatusQueued:     "start_time IS NULL AND end_time IS NULL AND discard_time IS NULL",
	help.StatusInProgress: "start_time IS NOT NULL AND end_time IS NULL AND discard_time IS NULL",
	help.StatusDone:       "end_time IS NOT NULL AND discard_time IS NULL",
	help.StatusDiscarded:  "discard_time IS NOT NULL",
}

type helpRepository struct {
	db    *sqlx.DB
	clock core.Clock

	// row lock for the claim subquery; sqlite serializes writers and has no FOR UPDATE
	claimLock string
}

var _ help.Repository = (*helpRepository)(nil) // interface compliance check

func NewHelpRepository(db *sqlx.DB, clock core.Clock) *helpRepository {
	repo := &helpRepository{db: db, clock: clock}
	if isPostgres(db) {
		repo.claimLock = " FOR UPDATE SKIP LOCKED"
	}
	return repo
}

// trapNoRowsErr maps "no rows" to help.ErrNotFound
func (repo helpRepository) trapNoRowsErr(err error, op string) error {
	if err == sql.ErrNoRows {
		return help.ErrNotFound
	}
	return core.NewStorageError(op, err)
}

func (repo helpRepository) getOne(ctx context.Context, op, query string, args ...interface{}) (help.HelpRequest, error) {
	var r help.HelpRequest
	if err := repo.db.GetContext(ctx, &r, repo.db.Rebind(query), args...); err != nil {
		return help.HelpRequest{}, repo.trapNoRowsErr(err, op)
	}
	return r, nil
}

func (repo helpRepository) RequestHelp(ctx context.Context, requester, classID, problem, tried string) (help.HelpRequest, error) {
	q := `INSERT INTO help_requests (requester, class_id, problem, tried, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING ` + helpColumns
	return repo.getOne(ctx, "inserting help request", q, requester, classID, problem, tried, repo.clock.UnixNow())
}

func (repo helpRepository) GetHelp(ctx context.Context, id int64) (help.HelpRequest, error) {
	q := `SELECT ` + helpColumns + ` FROM help_requests WHERE id = ?`
	return repo.getOne(ctx, "finding help request", q, id)
}

func (repo helpRepository) Take(ctx context.Context, id int64, helper string) (help.HelpRequest, error) {
	q := `UPDATE help_requests
		SET helper = ?, start_time = ?, end_time = NULL, discard_time = NULL
		WHERE id = ?
		RETURNING ` + helpColumns
	return repo.getOne(ctx, "taking help request", q, helper, repo.clock.UnixNow(), id)
}

func (repo helpRepository) FinishHelp(ctx context.Context, id int64) (help.HelpRequest, error) {
	q := `UPDATE help_requests
		SET end_time = ?, discard_time = NULL
		WHERE id = ?
		RETURNING ` + helpColumns
	return repo.getOne(ctx, "finishing help request", q, repo.clock.UnixNow(), id)
}

func (repo helpRepository) RequeueHelp(ctx context.Context, id int64) (help.HelpRequest, error) {
	q := `UPDATE help_requests
		SET helper = NULL, start_time = NULL, end_time = NULL, discard_time = NULL
		WHERE id = ?
		RETURNING ` + helpColumns
	return repo.getOne(ctx, "requeueing help request", q, id)
}

func (repo helpRepository) ReopenHelp(ctx context.Context, id int64) (help.HelpRequest, error) {
	q := `UPDATE help_requests
		SET end_time = NULL, discard_time = NULL
		WHERE id = ?
		RETURNING ` + helpColumns
	return repo.getOne(ctx, "reopening help request", q, id)
}

func (repo helpRepository) DiscardHelp(ctx context.Context, id int64) (help.HelpRequest, error) {
	q := `UPDATE help_requests
		SET discard_time = ?
		WHERE id = ?
		RETURNING ` + helpColumns
	return repo.getOne(ctx, "discarding help request", q, repo.clock.UnixNow(), id)
}

func (repo helpRepository) Next(ctx context.Context, classID, helper string) (help.HelpRequest, error) {
	q := fmt.Sprintf(`UPDATE help_requests
		SET helper = ?, start_time = ?, end_time = NULL, discard_time = NULL
		WHERE id = (
			SELECT id FROM help_requests
			WHERE class_id = ? AND %s
			ORDER BY created_at ASC, id ASC
			LIMIT 1%s
		)
		RETURNING %s`, statusPredicates[help.StatusQueued], repo.claimLock, helpColumns)

	r, err := repo.getOne(ctx, "claiming next help request", q, helper, repo.clock.UnixNow(), classID)
	if err == help.ErrNotFound {
		return help.HelpRequest{}, help.ErrEmptyQueue
	}
	return r, err
}

func (repo helpRepository) List(ctx context.Context, classID string, status help.Status) ([]help.HelpRequest, error) {
	pred, ok := statusPredicates[status]
	if !ok {
		return nil, errors.Errorf("unknown help status %q", status)
	}
	q := `SELECT ` + helpColumns + ` FROM help_requests
		WHERE class_id = ? AND ` + pred + `
		ORDER BY created_at ASC, id ASC`

	items := []help.HelpRequest{}
	if err := repo.db.SelectContext(ctx, &items, repo.db.Rebind(q), classID); err != nil {
		return nil, core.NewStorageError("listing help requests", err)
	}
	return items, nil
}

func (repo helpRepository) CountByRequester(ctx context.Context, classID string) (map[string]int, error) {
	q := `SELECT requester, COUNT(*) AS n FROM help_requests WHERE class_id = ? GROUP BY requester`

	var rows []struct {
		Requester string `db:"requester"`
		N         int    `db:"n"`
	}
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), classID); err != nil {
		return nil, core.NewStorageError("counting help requests", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Requester] = row.N
	}
	return counts, nil
}

func isPostgres(db *sqlx.DB) bool {
	return db.DriverName() == "postgres"
}
