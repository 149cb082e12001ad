package ipo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nepfolio/nepfolio/internal/kvstore"
	"github.com/nepfolio/nepfolio/internal/models"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	store := kvstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	reg := NewRegistry(store)
	reg.now = func() time.Time { return time.Date(2025, 6, 15, 11, 0, 0, 0, time.UTC) }
	id := 0
	reg.newID = func() string {
		id++
		return fmt.Sprintf("boid-%03d", id)
	}
	return reg
}

func TestRegistryAddAndGet(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	rec, err := reg.Add(ctx, "u1", "Main Account", "1301230000001234")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Name != "Main Account" || rec.Number != "1301230000001234" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Status != models.BOIDStatusUnchecked {
		t.Errorf("status = %q, want %q", rec.Status, models.BOIDStatusUnchecked)
	}

	got, err := reg.Get(ctx, "u1", rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != rec {
		t.Errorf("got %+v, want %+v", got, rec)
	}
}

func TestRegistryAddDefaultsNameToNumber(t *testing.T) {
	reg := testRegistry(t)
	rec, err := reg.Add(context.Background(), "u1", "", "1301230000001234")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.Name != "1301230000001234" {
		t.Errorf("name = %q, want the number", rec.Name)
	}
}

func TestRegistryAddValidation(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		userID string
		number string
	}{
		{"empty user", "", "1301230000001234"},
		{"too short", "u1", "13012300000012"},
		{"too long", "u1", "130123000000123456"},
		{"non-digit", "u1", "13012300000012ab"},
		{"empty number", "u1", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := reg.Add(ctx, c.userID, "x", c.number); !errors.Is(err, ErrInvalidBOID) {
				t.Errorf("err = %v, want ErrInvalidBOID", err)
			}
		})
	}
}

func TestRegistryListSortedPerUser(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Add(ctx, "u1", "Zelda", "1301230000000002"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := reg.Add(ctx, "u1", "Anna", "1301230000000001"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := reg.Add(ctx, "u2", "Other", "1301230000000003"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	recs, err := reg.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Name != "Anna" || recs[1].Name != "Zelda" {
		t.Errorf("order = %q, %q", recs[0].Name, recs[1].Name)
	}
}

func TestRegistrySetStatusPersistsMessage(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	rec, err := reg.Add(ctx, "u1", "Main", "1301230000001234")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	updated, err := reg.SetStatus(ctx, "u1", rec.ID, "Congratulations! Alloted 10 units.")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if updated.Status != "Congratulations! Alloted 10 units." {
		t.Errorf("status = %q", updated.Status)
	}
	// The other fields survive the status write.
	if updated.Name != "Main" || updated.Number != "1301230000001234" {
		t.Errorf("record = %+v", updated)
	}

	got, err := reg.Get(ctx, "u1", rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != updated.Status {
		t.Errorf("persisted status = %q", got.Status)
	}
}

func TestRegistrySetStatusUnknownID(t *testing.T) {
	reg := testRegistry(t)
	_, err := reg.SetStatus(context.Background(), "u1", "nope", "whatever")
	if !errors.Is(err, kvstore.ErrNotFound) {
		t.Fatalf("err = %v, want kvstore.ErrNotFound", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	rec, err := reg.Add(ctx, "u1", "Main", "1301230000001234")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := reg.Remove(ctx, "u1", rec.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := reg.Get(ctx, "u1", rec.ID); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("err = %v, want kvstore.ErrNotFound after remove", err)
	}
	// Removing again is harmless.
	if err := reg.Remove(ctx, "u1", rec.ID); err != nil {
		t.Errorf("second Remove: %v", err)
	}
}
