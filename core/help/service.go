package help

import (
	"context"
	"errors"
	"net/mail"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gigamonkey/help/core"
)

var (
	// errors
	ErrNotFound   = errors.New("help request not found")
	ErrEmptyQueue = errors.New("no queued help requests")
)

type (
	// Repository is the help queue store. Every mutation is a single statement and
	// returns the updated row, ErrNotFound when id matches nothing, or a *core.StorageError.
	Repository interface {
		RequestHelp(ctx context.Context, requester, classID, problem, tried string) (HelpRequest, error)
		GetHelp(ctx context.Context, id int64) (HelpRequest, error)
		Take(ctx context.Context, id int64, helper string) (HelpRequest, error)
		FinishHelp(ctx context.Context, id int64) (HelpRequest, error)
		RequeueHelp(ctx context.Context, id int64) (HelpRequest, error)
		ReopenHelp(ctx context.Context, id int64) (HelpRequest, error)
		DiscardHelp(ctx context.Context, id int64) (HelpRequest, error)
		// Next claims the oldest queued request of the class for helper in one statement.
		// It returns ErrEmptyQueue and changes nothing when the queue is empty.
		Next(ctx context.Context, classID, helper string) (HelpRequest, error)
		List(ctx context.Context, classID string, status Status) ([]HelpRequest, error)
		CountByRequester(ctx context.Context, classID string) (map[string]int, error)
	}

	// NameResolver looks up the display name of a user identity (an email).
	NameResolver interface {
		DisplayName(ctx context.Context, identity string) (string, bool, error)
	}

	Service struct {
		repo    Repository
		names   NameResolver
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, names NameResolver, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		names:   names,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *Service) Request(ctx context.Context, requester, classID string, nr NewRequest) (HelpRequest, error) {
	if err := nr.Validate(); err != nil {
		return HelpRequest{}, err
	}
	r, err := svc.repo.RequestHelp(ctx, requester, classID, nr.Problem, nr.Tried)
	if err != nil {
		return HelpRequest{}, pkgerrors.Wrap(err, "requesting help")
	}
	return svc.withName(ctx, r)
}

// Get returns the request only if it belongs to classID.
func (svc *Service) Get(ctx context.Context, classID string, id int64) (HelpRequest, error) {
	r, err := svc.repo.GetHelp(ctx, id)
	if err != nil {
		return HelpRequest{}, err
	}
	if r.ClassID != classID {
		return HelpRequest{}, ErrNotFound
	}
	return svc.withName(ctx, r)
}

func (svc *Service) Take(ctx context.Context, classID string, id int64, helper string) (HelpRequest, error) {
	r, err := svc.transition(ctx, classID, id, "take", func(ctx context.Context) (HelpRequest, error) {
		return svc.repo.Take(ctx, id, helper)
	})
	if err != nil {
		return HelpRequest{}, err
	}
	svc.notifyTaken(ctx, r)
	return r, nil
}

func (svc *Service) Finish(ctx context.Context, classID string, id int64) (HelpRequest, error) {
	return svc.transition(ctx, classID, id, "finish", func(ctx context.Context) (HelpRequest, error) {
		return svc.repo.FinishHelp(ctx, id)
	})
}

func (svc *Service) Requeue(ctx context.Context, classID string, id int64) (HelpRequest, error) {
	return svc.transition(ctx, classID, id, "requeue", func(ctx context.Context) (HelpRequest, error) {
		return svc.repo.RequeueHelp(ctx, id)
	})
}

func (svc *Service) Reopen(ctx context.Context, classID string, id int64) (HelpRequest, error) {
	return svc.transition(ctx, classID, id, "reopen", func(ctx context.Context) (HelpRequest, error) {
		return svc.repo.ReopenHelp(ctx, id)
	})
}

func (svc *Service) Discard(ctx context.Context, classID string, id int64) (HelpRequest, error) {
	return svc.transition(ctx, classID, id, "discard", func(ctx context.Context) (HelpRequest, error) {
		return svc.repo.DiscardHelp(ctx, id)
	})
}

func (svc *Service) Next(ctx context.Context, classID, helper string) (HelpRequest, error) {
	r, err := svc.repo.Next(ctx, classID, helper)
	if err != nil {
		if err == ErrEmptyQueue {
			return HelpRequest{}, err
		}
		return HelpRequest{}, pkgerrors.Wrap(err, "claiming next help request")
	}
	svc.logger.Debug("help request claimed", map[string]interface{}{"id": r.ID, "class_id": classID, "helper": helper})

	if r, err = svc.withName(ctx, r); err != nil {
		return HelpRequest{}, err
	}
	svc.notifyTaken(ctx, r)
	return r, nil
}

func (svc *Service) Queue(ctx context.Context, classID string) ([]HelpRequest, error) {
	return svc.List(ctx, classID, StatusQueued)
}

func (svc *Service) InProgress(ctx context.Context, classID string) ([]HelpRequest, error) {
	return svc.List(ctx, classID, StatusInProgress)
}

func (svc *Service) Done(ctx context.Context, classID string) ([]HelpRequest, error) {
	return svc.List(ctx, classID, StatusDone)
}

func (svc *Service) Discarded(ctx context.Context, classID string) ([]HelpRequest, error) {
	return svc.List(ctx, classID, StatusDiscarded)
}

// List returns the requests of classID with the given status, oldest first.
func (svc *Service) List(ctx context.Context, classID string, status Status) ([]HelpRequest, error) {
	items, err := svc.repo.List(ctx, classID, status)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "listing %s help requests", status)
	}

	names := make(map[string]null.String)
	for i, r := range items {
		name, ok := names[r.Requester]
		if !ok {
			if name, err = svc.lookupName(ctx, r.Requester); err != nil {
				return nil, err
			}
			names[r.Requester] = name
		}
		items[i].Name = name
	}
	return items, nil
}

func (svc *Service) CountByRequester(ctx context.Context, classID string) (map[string]int, error) {
	counts, err := svc.repo.CountByRequester(ctx, classID)
	return counts, pkgerrors.Wrap(err, "counting help requests")
}

func (svc *Service) transition(ctx context.Context, classID string, id int64, op string, apply func(context.Context) (HelpRequest, error)) (HelpRequest, error) {
	// the request must belong to the class in scope
	if _, err := svc.Get(ctx, classID, id); err != nil {
		return HelpRequest{}, err
	}

	r, err := apply(ctx)
	if err != nil {
		if err == ErrNotFound {
			return HelpRequest{}, err
		}
		return HelpRequest{}, pkgerrors.Wrapf(err, "%s help request", op)
	}
	svc.logger.Debug("help request "+op, map[string]interface{}{"id": id, "class_id": classID, "status": r.Status().String()})
	return svc.withName(ctx, r)
}

func (svc *Service) withName(ctx context.Context, r HelpRequest) (HelpRequest, error) {
	name, err := svc.lookupName(ctx, r.Requester)
	if err != nil {
		return HelpRequest{}, err
	}
	r.Name = name
	return r, nil
}

func (svc *Service) lookupName(ctx context.Context, identity string) (null.String, error) {
	if svc.names == nil {
		return null.String{}, nil
	}
	name, ok, err := svc.names.DisplayName(ctx, identity)
	if err != nil {
		return null.String{}, pkgerrors.Wrap(err, "resolving display name")
	}
	return null.NewString(name, ok), nil
}

func (svc *Service) notifyTaken(ctx context.Context, r HelpRequest) {
	if svc.mailSvc == nil || !r.Helper.Valid {
		return
	}
	helperName, err := svc.lookupName(ctx, r.Helper.String)
	if err != nil {
		svc.logger.Warn("resolving helper name", err)
	}
	data := takenEmailData{
		Name:    r.Name.String,
		Helper:  helperName.String,
		ClassID: r.ClassID,
		Problem: r.Problem,
	}
	if data.Name == "" {
		data.Name = r.Requester
	}
	if data.Helper == "" {
		data.Helper = r.Helper.String
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: data.Name, Address: r.Requester}},
		Subject:      "Someone is on the way",
		TemplateName: "help_taken",
		TemplateData: data,
	})
}
