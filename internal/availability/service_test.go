package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"venuebook/internal/authz"
	"venuebook/internal/store"
)

type fakeSlotStore struct {
	mu     sync.Mutex
	nextID int64
	slots  map[int64]*store.Availability
}

func newFakeSlotStore() *fakeSlotStore {
	return &fakeSlotStore{nextID: 1, slots: make(map[int64]*store.Availability)}
}

func (f *fakeSlotStore) Create(_ context.Context, a *store.Availability) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.slots {
		if existing.VenueID != a.VenueID {
			continue
		}
		if existing.StartTime.Before(a.EndTime) && a.StartTime.Before(existing.EndTime) {
			return store.ErrOverlap
		}
	}

	a.ID = f.nextID
	f.nextID++
	a.Status = store.AvailabilityAvailable
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	f.slots[a.ID] = &cp
	return nil
}

func (f *fakeSlotStore) GetByID(_ context.Context, id int64) (*store.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.slots[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeSlotStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.slots[id]
	if !ok {
		return store.ErrNotFound
	}
	if a.Status != store.AvailabilityAvailable {
		return store.ErrConflict
	}
	delete(f.slots, id)
	return nil
}

func (f *fakeSlotStore) ListAvailable(_ context.Context, venueID int64, asOf time.Time) ([]store.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Availability
	for _, a := range f.slots {
		if a.VenueID == venueID && a.Status == store.AvailabilityAvailable && !a.StartTime.Before(asOf) {
			out = append(out, *a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (f *fakeSlotStore) ListAll(_ context.Context, venueID int64) ([]store.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Availability
	for _, a := range f.slots {
		if a.VenueID == venueID {
			out = append(out, *a)
		}
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(slots []store.Availability) {
	for i := 1; i < len(slots); i++ {
		for j := i; j > 0 && slots[j].StartTime.Before(slots[j-1].StartTime); j-- {
			slots[j], slots[j-1] = slots[j-1], slots[j]
		}
	}
}

type fakeVenueStore struct {
	venues map[int64]*store.Venue
}

func (f *fakeVenueStore) GetByID(_ context.Context, id int64) (*store.Venue, error) {
	v, ok := f.venues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func newTestService() (*Service, *fakeSlotStore) {
	slots := newFakeSlotStore()
	venues := &fakeVenueStore{venues: map[int64]*store.Venue{
		1: {ID: 1, OwnerID: 10, Name: "Grand Hall", PricePerHour: 100, ContactEmail: "hall@example.com"},
	}}
	return NewService(slots, venues, zap.NewNop().Sugar()), slots
}

var (
	owner    = authz.Actor{ID: 10, Role: authz.RoleVenueOwner}
	admin    = authz.Actor{ID: 1, Role: authz.RoleAdmin}
	stranger = authz.Actor{ID: 66, Role: authz.RoleVenueOwner}
)

func TestCreate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		venueID int64
		start   time.Time
		end     time.Time
		actor   authz.Actor
		wantErr error
	}{
		{"owner creates a future slot", 1, now.Add(time.Hour), now.Add(3 * time.Hour), owner, nil},
		{"admin creates for someone else's venue", 1, now.Add(24 * time.Hour), now.Add(26 * time.Hour), admin, nil},
		{"unknown venue", 42, now.Add(time.Hour), now.Add(2 * time.Hour), owner, store.ErrNotFound},
		{"non-owner forbidden", 1, now.Add(time.Hour), now.Add(2 * time.Hour), stranger, ErrForbidden},
		{"start equal to end", 1, now.Add(time.Hour), now.Add(time.Hour), owner, ErrInvalidRange},
		{"start after end", 1, now.Add(3 * time.Hour), now.Add(time.Hour), owner, ErrInvalidRange},
		{"start in the past", 1, now.Add(-time.Hour), now.Add(time.Hour), owner, ErrPastStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			slot, err := svc.Create(context.Background(), tt.venueID, tt.start, tt.end, tt.actor)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if slot.Status != store.AvailabilityAvailable {
				t.Errorf("status = %s, want AVAILABLE", slot.Status)
			}
			if slot.ID == 0 {
				t.Error("slot was not assigned an id")
			}
		})
	}
}

func TestCreate_Overlap(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	base := time.Now().Add(24 * time.Hour)

	if _, err := svc.Create(ctx, 1, base, base.Add(2*time.Hour), owner); err != nil {
		t.Fatalf("seeding slot: %v", err)
	}

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"identical interval", base, base.Add(2 * time.Hour), store.ErrOverlap},
		{"starts inside existing", base.Add(time.Hour), base.Add(3 * time.Hour), store.ErrOverlap},
		{"ends inside existing", base.Add(-time.Hour), base.Add(time.Hour), store.ErrOverlap},
		{"covers existing", base.Add(-time.Hour), base.Add(3 * time.Hour), store.ErrOverlap},
		{"abuts at end is fine", base.Add(2 * time.Hour), base.Add(4 * time.Hour), nil},
		{"abuts at start is fine", base.Add(-2 * time.Hour), base, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, tt.start, tt.end, owner)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreate_ConcurrentOverlapping(t *testing.T) {
	svc, slots := newTestService()
	ctx := context.Background()
	base := time.Now().Add(24 * time.Hour)

	// Two slots that overlap each other but nothing pre-existing. The store
	// serializes creates per venue, so exactly one may land.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, offset := range []time.Duration{0, time.Hour} {
		wg.Add(1)
		go func(offset time.Duration) {
			defer wg.Done()
			_, err := svc.Create(ctx, 1, base.Add(offset), base.Add(offset+2*time.Hour), owner)
			errs <- err
		}(offset)
	}
	wg.Wait()
	close(errs)

	var ok, overlapped int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrOverlap):
			overlapped++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || overlapped != 1 {
		t.Errorf("got %d created and %d overlap rejections, want exactly 1 of each", ok, overlapped)
	}
	if len(slots.slots) != 1 {
		t.Errorf("store holds %d slots, want 1", len(slots.slots))
	}
}

func TestDelete(t *testing.T) {
	svc, slots := newTestService()
	ctx := context.Background()
	base := time.Now().Add(24 * time.Hour)

	open, err := svc.Create(ctx, 1, base, base.Add(time.Hour), owner)
	if err != nil {
		t.Fatalf("seeding slot: %v", err)
	}
	booked, err := svc.Create(ctx, 1, base.Add(2*time.Hour), base.Add(3*time.Hour), owner)
	if err != nil {
		t.Fatalf("seeding slot: %v", err)
	}
	slots.slots[booked.ID].Status = store.AvailabilityBooked

	if err := svc.Delete(ctx, open.ID, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete() by stranger error = %v, want ErrForbidden", err)
	}

	// Booked slots are immutable regardless of privilege.
	if err := svc.Delete(ctx, booked.ID, owner); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Delete() booked by owner error = %v, want ErrConflict", err)
	}
	if err := svc.Delete(ctx, booked.ID, admin); !errors.Is(err, store.ErrConflict) {
		t.Errorf("Delete() booked by admin error = %v, want ErrConflict", err)
	}

	if err := svc.Delete(ctx, open.ID, owner); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, open.ID, owner); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestListAvailable(t *testing.T) {
	svc, slots := newTestService()
	ctx := context.Background()
	base := time.Now().Add(24 * time.Hour)

	early, _ := svc.Create(ctx, 1, base, base.Add(time.Hour), owner)
	late, _ := svc.Create(ctx, 1, base.Add(4*time.Hour), base.Add(5*time.Hour), owner)
	mid, _ := svc.Create(ctx, 1, base.Add(2*time.Hour), base.Add(3*time.Hour), owner)
	slots.slots[mid.ID].Status = store.AvailabilityBooked

	got, err := svc.ListAvailable(ctx, 1, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ListAvailable() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != late.ID {
		t.Fatalf("ListAvailable() = %+v, want only slot %d", got, late.ID)
	}

	all, err := svc.ListAll(ctx, 1, owner)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll() returned %d slots, want 3", len(all))
	}
	if all[0].ID != early.ID {
		t.Errorf("ListAll() not ordered by start time: first = %d, want %d", all[0].ID, early.ID)
	}

	if _, err := svc.ListAll(ctx, 1, stranger); !errors.Is(err, ErrForbidden) {
		t.Errorf("ListAll() by stranger error = %v, want ErrForbidden", err)
	}

	if _, err := svc.ListAvailable(ctx, 42, base); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ListAvailable() unknown venue error = %v, want ErrNotFound", err)
	}
}
