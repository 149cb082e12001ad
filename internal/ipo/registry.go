package ipo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/models"
)

// boidDigits is the fixed length of a CDSC beneficiary owner ID.
const boidDigits = 16

// ErrInvalidBOID rejects a registration whose number is not a 16-digit string
// or whose user is missing.
var ErrInvalidBOID = errors.New("boid must be a 16-digit number")

// Registry keeps each user's registered BOIDs and their last known allotment
// status. Records live under users/<uid>/boids in the same store as the
// portfolio, so the usual change subscriptions cover them.
type Registry struct {
	store kvstore.Store

	now   func() time.Time
	newID func() string
}

// NewRegistry creates a BOID registry on the given store.
func NewRegistry(store kvstore.Store) *Registry {
	return &Registry{store: store, now: time.Now, newID: uuid.NewString}
}

// Add registers a BOID for the user. The name defaults to the number when
// empty; the status starts as "Not Checked".
func (r *Registry) Add(ctx context.Context, userID, name, number string) (models.BOID, error) {
	if userID == "" {
		return models.BOID{}, fmt.Errorf("%w: empty user id", ErrInvalidBOID)
	}
	if !validBOIDNumber(number) {
		return models.BOID{}, fmt.Errorf("%w: got %q", ErrInvalidBOID, number)
	}
	if name == "" {
		name = number
	}

	rec := models.BOID{
		ID:          r.newID(),
		Name:        name,
		Number:      number,
		Status:      models.BOIDStatusUnchecked,
		LastUpdated: r.now(),
	}
	err := r.store.Update(ctx, map[string]any{
		kvstore.BOIDPath(userID, rec.ID): rec,
	})
	if err != nil {
		return models.BOID{}, fmt.Errorf("register boid: %w", err)
	}
	return rec, nil
}

// Get returns one registered BOID, or kvstore.ErrNotFound.
func (r *Registry) Get(ctx context.Context, userID, id string) (models.BOID, error) {
	raw, err := r.store.Get(ctx, kvstore.BOIDPath(userID, id))
	if err != nil {
		return models.BOID{}, err
	}
	var rec models.BOID
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.BOID{}, fmt.Errorf("decode boid record: %w", err)
	}
	return rec, nil
}

// List returns the user's registered BOIDs sorted by name.
func (r *Registry) List(ctx context.Context, userID string) ([]models.BOID, error) {
	snap, err := r.store.List(ctx, kvstore.BOIDsPrefix(userID))
	if err != nil {
		return nil, err
	}
	recs := make([]models.BOID, 0, len(snap))
	for _, raw := range snap {
		var rec models.BOID
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Name != recs[j].Name {
			return recs[i].Name < recs[j].Name
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

// SetStatus persists a check result as the record's status and returns the
// updated record.
func (r *Registry) SetStatus(ctx context.Context, userID, id, status string) (models.BOID, error) {
	rec, err := r.Get(ctx, userID, id)
	if err != nil {
		return models.BOID{}, err
	}
	rec.Status = status
	rec.LastUpdated = r.now()
	err = r.store.Update(ctx, map[string]any{
		kvstore.BOIDPath(userID, id): rec,
	})
	if err != nil {
		return models.BOID{}, fmt.Errorf("update boid status: %w", err)
	}
	return rec, nil
}

// Remove deletes a registered BOID. Removing an unknown ID is a no-op.
func (r *Registry) Remove(ctx context.Context, userID, id string) error {
	return r.store.Update(ctx, map[string]any{
		kvstore.BOIDPath(userID, id): nil,
	})
}

// validBOIDNumber reports whether s is exactly 16 ASCII digits.
func validBOIDNumber(s string) bool {
	if len(s) != boidDigits {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
