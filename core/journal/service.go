package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/gigamonkey/help/core"
)

var (
	// errors
	ErrPromptNotFound = errors.New("prompt not found")
)

type (
	Repository interface {
		AddEntry(ctx context.Context, email, classID, text string, promptID *int64, exec ...core.DBExecutor) (Entry, error)
		// EntriesFor returns the entries of email in classID, newest first.
		EntriesFor(ctx context.Context, email, classID string) ([]Entry, error)
		// EntriesBetween returns the entries of classID created strictly between after and before;
		// a zero bound is open.
		EntriesBetween(ctx context.Context, classID string, after, before int64) ([]Entry, error)
		CreatePrompt(ctx context.Context, classID, text string) (Prompt, error)
		GetPrompt(ctx context.Context, id int64, exec ...core.DBExecutor) (Prompt, error)
		ClosePrompt(ctx context.Context, id int64) (Prompt, error)
		// PromptAgain copies the text of prompt id into a new open prompt.
		PromptAgain(ctx context.Context, id int64) (Prompt, error)
		// AllPrompts returns the prompts of classID that are open or were answered, oldest first.
		AllPrompts(ctx context.Context, classID string) ([]Prompt, error)
		// OpenPromptsFor returns the open prompts of classID that email has not answered yet.
		OpenPromptsFor(ctx context.Context, email, classID string) ([]Prompt, error)
		Responses(ctx context.Context, promptID int64) ([]Response, error)
	}

	Service struct {
		db   core.DB
		repo Repository
		loc  *time.Location
	}
)

func NewService(db core.DB, repo Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{db: db, repo: repo, loc: loc}
}

func (svc *Service) Journal(ctx context.Context, email, classID string) (Journal, error) {
	entries, err := svc.repo.EntriesFor(ctx, email, classID)
	if err != nil {
		return Journal{}, errors.Wrap(err, "listing journal entries")
	}
	prompts, err := svc.repo.OpenPromptsFor(ctx, email, classID)
	if err != nil {
		return Journal{}, errors.Wrap(err, "listing open prompts")
	}
	return Journal{Days: GroupEntries(entries, svc.loc), Prompts: prompts}, nil
}

// Write adds a free entry, or all the prompt responses in one transaction.
func (svc *Service) Write(ctx context.Context, email, classID string, ne NewEntry) error {
	if err := ne.Validate(); err != nil {
		return err
	}

	if len(ne.Responses) == 0 {
		_, err := svc.repo.AddEntry(ctx, email, classID, ne.Text, nil)
		return errors.Wrap(err, "adding journal entry")
	}

	err := core.WithTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if ne.Text != "" {
			if _, err := svc.repo.AddEntry(ctx, email, classID, ne.Text, nil, tx); err != nil {
				return err
			}
		}
		for _, r := range ne.Responses {
			p, err := svc.repo.GetPrompt(ctx, r.PromptID, tx)
			if err != nil {
				return err
			}
			if p.ClassID != classID {
				return ErrPromptNotFound
			}
			promptID := r.PromptID
			if _, err = svc.repo.AddEntry(ctx, email, classID, r.Text, &promptID, tx); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "adding prompt responses")
}

func (svc *Service) Prompts(ctx context.Context, classID string) (PromptLists, error) {
	prompts, err := svc.repo.AllPrompts(ctx, classID)
	if err != nil {
		return PromptLists{}, errors.Wrap(err, "listing prompts")
	}
	return SplitPrompts(prompts), nil
}

func (svc *Service) CreatePrompt(ctx context.Context, classID string, np NewPrompt) (Prompt, error) {
	if err := np.Validate(); err != nil {
		return Prompt{}, err
	}
	p, err := svc.repo.CreatePrompt(ctx, classID, np.Text)
	return p, errors.Wrap(err, "creating prompt")
}

// Prompt returns prompt id of classID with its responses.
func (svc *Service) Prompt(ctx context.Context, classID string, id int64) (Prompt, []Response, error) {
	p, err := svc.getPrompt(ctx, classID, id)
	if err != nil {
		return Prompt{}, nil, err
	}
	responses, err := svc.repo.Responses(ctx, id)
	if err != nil {
		return Prompt{}, nil, errors.Wrap(err, "listing responses")
	}
	return p, responses, nil
}

func (svc *Service) ClosePrompt(ctx context.Context, classID string, id int64) (Prompt, error) {
	if _, err := svc.getPrompt(ctx, classID, id); err != nil {
		return Prompt{}, err
	}
	return svc.repo.ClosePrompt(ctx, id)
}

func (svc *Service) PromptAgain(ctx context.Context, classID string, id int64) (Prompt, error) {
	if _, err := svc.getPrompt(ctx, classID, id); err != nil {
		return Prompt{}, err
	}
	return svc.repo.PromptAgain(ctx, id)
}

// EntryTimes returns the creation time of every journal entry of classID, per author.
func (svc *Service) EntryTimes(ctx context.Context, classID string) (map[string][]int64, error) {
	entries, err := svc.repo.EntriesBetween(ctx, classID, 0, 0)
	if err != nil {
		return nil, errors.Wrap(err, "listing journal entries")
	}
	times := make(map[string][]int64)
	for _, e := range entries {
		times[e.Email] = append(times[e.Email], e.CreatedAt)
	}
	return times, nil
}

func (svc *Service) getPrompt(ctx context.Context, classID string, id int64) (Prompt, error) {
	p, err := svc.repo.GetPrompt(ctx, id)
	if err != nil {
		return Prompt{}, err
	}
	if p.ClassID != classID {
		return Prompt{}, ErrPromptNotFound
	}
	return p, nil
}
