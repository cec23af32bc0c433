package repository

import (
	"context"
	"time"

	"github.com/featuretoggle/featuretoggle/internal/toggle"
)

// Store persists toggles per namespace (package). Implementations wrap
// backend failures with toggle.ErrStoreUnavailable.
type Store interface {
	NamespaceExists(ctx context.Context, ns string) (bool, error)
	Insert(ctx context.Context, ns string, t *toggle.Toggle) error
	FindAll(ctx context.Context, ns string) ([]*toggle.Toggle, error)
	Find(ctx context.Context, ns string, f Filter) ([]*toggle.Toggle, error)
	FindByID(ctx context.Context, ns, id string) (*toggle.Toggle, error)
	UpdateFields(ctx context.Context, ns, id string, f Fields) (int64, error)
	DeleteByID(ctx context.Context, ns, id string) (int64, error)
	DeleteAll(ctx context.Context, ns string) (int64, error)
	Count(ctx context.Context, ns string, f *Filter) (int64, error)
}

// Filter selects toggles. Set conditions are ANDed; an empty filter matches
// everything.
type Filter struct {
	// ActiveAt matches toggles whose window contains the instant.
	ActiveAt *time.Time
	// OverlapStart and OverlapEnd match toggles intersecting the range.
	// Both must be set for the condition to apply.
	OverlapStart *time.Time
	OverlapEnd   *time.Time
	// CreatedSince matches toggles created at or after the instant.
	CreatedSince *time.Time
}

// Match evaluates the filter in process.
func (f Filter) Match(t *toggle.Toggle) bool {
	if f.ActiveAt != nil && !toggle.IsActiveAt(t, *f.ActiveAt) {
		return false
	}
	if f.OverlapStart != nil && f.OverlapEnd != nil {
		ok, err := toggle.Overlaps(t, *f.OverlapStart, *f.OverlapEnd)
		if err != nil || !ok {
			return false
		}
	}
	if f.CreatedSince != nil && t.CreatedAt.Before(*f.CreatedSince) {
		return false
	}
	return true
}

// Fields is a partial update; nil members are left unchanged.
type Fields struct {
	Name           *string
	Description    *string
	BeginningDate  *time.Time
	ExpirationDate *time.Time
	UpdatedAt      *time.Time
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f.Name == nil && f.Description == nil && f.BeginningDate == nil &&
		f.ExpirationDate == nil && f.UpdatedAt == nil
}

func (f Fields) apply(t *toggle.Toggle) {
	if f.Name != nil {
		t.Name = *f.Name
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.BeginningDate != nil {
		t.BeginningDate = *f.BeginningDate
	}
	if f.ExpirationDate != nil {
		t.ExpirationDate = *f.ExpirationDate
	}
	if f.UpdatedAt != nil {
		t.UpdatedAt = *f.UpdatedAt
	}
}
