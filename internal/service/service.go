package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskwise/internal/board"
	"taskwise/internal/logger"
	"taskwise/internal/models/task"
	"taskwise/internal/models/user"
	"taskwise/internal/pubsub"
	repo "taskwise/internal/repository"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const DefaultSummaryMinLength = 20

// Summarizer condenses a task description.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type Service struct {
	store      repo.Store
	changes    *pubsub.Broker[pubsub.Change]
	errs       *pubsub.Broker[pubsub.ErrorEvent]
	summarizer Summarizer
	sanitizer  *bluemonday.Policy
	retention  time.Duration
	minSummary int
	bootstrap  map[string]bool
	now        func() time.Time
	newID      func() string
}

type Option func(*Service)

func WithChanges(changes *pubsub.Broker[pubsub.Change]) Option {
	return func(s *Service) { s.changes = changes }
}

func WithErrors(errs *pubsub.Broker[pubsub.ErrorEvent]) Option {
	return func(s *Service) { s.errs = errs }
}

func WithSummarizer(summarizer Summarizer) Option {
	return func(s *Service) { s.summarizer = summarizer }
}

func WithRetention(retention time.Duration) Option {
	return func(s *Service) { s.retention = retention }
}

func WithSummaryMinLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minSummary = n
		}
	}
}

// WithBootstrapSysadmins lists emails that register as approved system
// administrators.
func WithBootstrapSysadmins(emails ...string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				s.bootstrap[e] = true
			}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(store repo.Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		sanitizer:  newCommentPolicy(),
		retention:  board.DefaultRetention,
		minSummary: DefaultSummaryMinLength,
		bootstrap:  make(map[string]bool),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

func (s *Service) boardOptions() []board.Option {
	return []board.Option{
		board.WithChanges(s.changes),
		board.WithErrors(s.errs),
		board.WithRetention(s.retention),
		board.WithClock(s.now),
		board.WithIDs(s.newID),
	}
}

// OpenBoard returns an opened board for actor. The caller closes it.
func (s *Service) OpenBoard(ctx context.Context, actor *user.AppUser) (*board.Board, error) {
	if !actor.Approved() {
		return nil, NewPermissionDenied("account is not approved")
	}
	opts := s.boardOptions()
	if actor.IsAdmin() {
		opts = append(opts, board.WithDecorator(s.departmentColors))
	}
	b := board.New(s.store, actor, opts...)
	if err := b.Open(ctx); err != nil {
		logger.Error("Service: Failed to open board", err, zap.String("actor", actor.ID))
		return nil, toBusinessError("board", actor.ID, err)
	}
	return b, nil
}

func (s *Service) withBoard(ctx context.Context, actor *user.AppUser, fn func(*board.Board) error) error {
	b, err := s.OpenBoard(ctx, actor)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// departmentColors fills DepColor from the department list. A failed
// lookup leaves tasks undecorated.
func (s *Service) departmentColors(ctx context.Context, tasks []*task.Task) {
	deps, err := s.store.ListDepartments(ctx)
	if err != nil {
		logger.Warn("Service: Department colours unavailable", zap.Error(err))
		return
	}
	colors := make(map[string]string, len(deps))
	for _, d := range deps {
		colors[d.Name] = d.Color
	}
	for _, t := range tasks {
		t.DepColor = colors[t.Department]
	}
}
