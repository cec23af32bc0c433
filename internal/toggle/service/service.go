package service

import (
	"context"
	"strings"
	"time"

	"github.com/featuretoggle/featuretoggle/internal/toggle"
	"github.com/featuretoggle/featuretoggle/internal/toggle/repository"
	"github.com/google/uuid"
)

// RecentWindow bounds ListRecent.
const RecentWindow = 30 * 24 * time.Hour

// Service defines the toggle use cases consumed by the handler layer.
type Service interface {
	Create(ctx context.Context, in CreateInput) (string, error)
	List(ctx context.Context, ns string) ([]*toggle.Toggle, error)
	ListByDate(ctx context.Context, ns, date string) ([]*toggle.Toggle, error)
	ListActive(ctx context.Context, ns string) ([]*toggle.Toggle, error)
	ListActiveInRange(ctx context.Context, ns, start, end string) ([]*toggle.Toggle, error)
	ListRecent(ctx context.Context, ns string) ([]*toggle.Toggle, error)
	DeleteAll(ctx context.Context, ns string) (int64, error)
	Delete(ctx context.Context, ns, id string) error
	UpdateDates(ctx context.Context, ns, id string, beginning, expiration *string) error
	UpdateInfo(ctx context.Context, ns, id string, name, description *string) error
	Statistics(ctx context.Context, ns string) (*toggle.Stats, error)
}

// CreateInput carries the raw create request. A nil field was absent from
// the request body.
type CreateInput struct {
	Package        *string
	Name           *string
	Description    *string
	BeginningDate  *string
	ExpirationDate *string
}

// Option configures the service.
type Option func(*toggleService)

// WithClock overrides the source of "now".
func WithClock(now func() time.Time) Option {
	return func(s *toggleService) { s.now = now }
}

// WithIDGenerator overrides how new toggle ids are minted.
func WithIDGenerator(gen func() string) Option {
	return func(s *toggleService) { s.newID = gen }
}

// New returns a Service backed by the given store.
func New(store repository.Store, opts ...Option) Service {
	s := &toggleService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return New(repository.NewMemoryRepo(), opts...)
}

// NewMongoService returns a Service backed by MongoDB, one collection per
// package.
func NewMongoService(dbs repository.DatabaseProvider, opts ...Option) Service {
	return New(repository.NewMongoRepo(dbs), opts...)
}

type toggleService struct {
	store repository.Store
	now   func() time.Time
	newID func() string
}

func (s *toggleService) requireNamespace(ctx context.Context, ns string) error {
	ok, err := s.store.NamespaceExists(ctx, ns)
	if err != nil {
		return err
	}
	if !ok {
		return toggle.ErrNamespaceNotFound
	}
	return nil
}

func (s *toggleService) Create(ctx context.Context, in CreateInput) (string, error) {
	if in.Package == nil || in.Name == nil || in.Description == nil || in.BeginningDate == nil || in.ExpirationDate == nil {
		return "", toggle.ErrMissingFields
	}
	if strings.TrimSpace(*in.Package) == "" || strings.TrimSpace(*in.Name) == "" {
		return "", toggle.ErrMissingFields
	}
	beginning, err := toggle.ParseDateTime(*in.BeginningDate)
	if err != nil {
		return "", err
	}
	expiration, err := toggle.ParseDateTime(*in.ExpirationDate)
	if err != nil {
		return "", err
	}
	if err := toggle.ValidateWindow(beginning, expiration); err != nil {
		return "", err
	}

	now := s.now().Truncate(time.Second)
	t := &toggle.Toggle{
		ID:             s.newID(),
		Name:           *in.Name,
		Description:    *in.Description,
		BeginningDate:  beginning,
		ExpirationDate: expiration,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Insert(ctx, *in.Package, t); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (s *toggleService) List(ctx context.Context, ns string) ([]*toggle.Toggle, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return nil, err
	}
	return s.store.FindAll(ctx, ns)
}

func (s *toggleService) ListByDate(ctx context.Context, ns, date string) ([]*toggle.Toggle, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return nil, err
	}
	d, err := toggle.ParseDay(date)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, ns, repository.Filter{ActiveAt: &d})
}

func (s *toggleService) ListActive(ctx context.Context, ns string) ([]*toggle.Toggle, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return nil, err
	}
	now := s.now()
	return s.store.Find(ctx, ns, repository.Filter{ActiveAt: &now})
}

func (s *toggleService) ListActiveInRange(ctx context.Context, ns, start, end string) ([]*toggle.Toggle, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return nil, err
	}
	if start == "" || end == "" {
		return nil, toggle.ErrMissingRange
	}
	from, err := toggle.ParseDay(start)
	if err != nil {
		return nil, err
	}
	to, err := toggle.ParseDay(end)
	if err != nil {
		return nil, err
	}
	if from.After(to) {
		return nil, toggle.ErrInvalidRange
	}
	return s.store.Find(ctx, ns, repository.Filter{OverlapStart: &from, OverlapEnd: &to})
}

func (s *toggleService) ListRecent(ctx context.Context, ns string) ([]*toggle.Toggle, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return nil, err
	}
	since := s.now().Add(-RecentWindow)
	return s.store.Find(ctx, ns, repository.Filter{CreatedSince: &since})
}

func (s *toggleService) DeleteAll(ctx context.Context, ns string) (int64, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return 0, err
	}
	return s.store.DeleteAll(ctx, ns)
}

func (s *toggleService) Delete(ctx context.Context, ns, id string) error {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return err
	}
	n, err := s.store.DeleteByID(ctx, ns, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return toggle.ErrToggleNotFound
	}
	return nil
}

func (s *toggleService) UpdateDates(ctx context.Context, ns, id string, beginning, expiration *string) error {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return err
	}
	if beginning == nil && expiration == nil {
		return toggle.ErrNoFieldsProvided
	}
	var newBeginning, newExpiration *time.Time
	if beginning != nil {
		t, err := toggle.ParseDateTime(*beginning)
		if err != nil {
			return err
		}
		newBeginning = &t
	}
	if expiration != nil {
		t, err := toggle.ParseDateTime(*expiration)
		if err != nil {
			return err
		}
		newExpiration = &t
	}

	current, err := s.store.FindByID(ctx, ns, id)
	if err != nil {
		return err
	}
	next, err := toggle.ReconcileDates(current, newBeginning, newExpiration)
	if err != nil {
		return err
	}

	now := s.now().Truncate(time.Second)
	return s.update(ctx, ns, id, repository.Fields{
		BeginningDate:  &next.BeginningDate,
		ExpirationDate: &next.ExpirationDate,
		UpdatedAt:      &now,
	})
}

func (s *toggleService) UpdateInfo(ctx context.Context, ns, id string, name, description *string) error {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return err
	}
	if _, err := s.store.FindByID(ctx, ns, id); err != nil {
		return err
	}
	var f repository.Fields
	if name != nil && *name != "" {
		f.Name = name
	}
	if description != nil && *description != "" {
		f.Description = description
	}
	if f.Empty() {
		return toggle.ErrNoValidFields
	}
	now := s.now().Truncate(time.Second)
	f.UpdatedAt = &now
	return s.update(ctx, ns, id, f)
}

// update applies f and reports a record that vanished since it was read as
// not found.
func (s *toggleService) update(ctx context.Context, ns, id string, f repository.Fields) error {
	n, err := s.store.UpdateFields(ctx, ns, id, f)
	if err != nil {
		return err
	}
	if n == 0 {
		return toggle.ErrToggleNotFound
	}
	return nil
}

func (s *toggleService) Statistics(ctx context.Context, ns string) (*toggle.Stats, error) {
	if err := s.requireNamespace(ctx, ns); err != nil {
		return nil, err
	}
	total, err := s.store.Count(ctx, ns, nil)
	if err != nil {
		return nil, err
	}
	now := s.now()
	active, err := s.store.Count(ctx, ns, &repository.Filter{ActiveAt: &now})
	if err != nil {
		return nil, err
	}
	return &toggle.Stats{Total: total, Active: active}, nil
}
