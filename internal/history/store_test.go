package history_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/i474232898/weather-lookup/internal/history"
	"github.com/i474232898/weather-lookup/internal/logging"
	"github.com/i474232898/weather-lookup/internal/store"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(repo history.Repository, clock *fakeClock) *history.Store {
	return history.NewStore(repo, history.DefaultPolicy(), logging.Discard(), history.WithClock(clock.Now))
}

func paris() history.Lookup {
	icon, desc := "04d", "broken clouds"
	return history.Lookup{CityName: "Paris", TempCelsius: 6.9, IconCode: &icon, Description: &desc}
}

func TestRecordLookup_DedupWindow(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(repo, clock)

	inserted, err := s.RecordLookup(ctx, paris())
	if err != nil || !inserted {
		t.Fatalf("first RecordLookup() = %v, %v; want true, nil", inserted, err)
	}

	clock.Advance(3599 * time.Second)
	inserted, err = s.RecordLookup(ctx, paris())
	if err != nil || inserted {
		t.Fatalf("RecordLookup() inside window = %v, %v; want false, nil", inserted, err)
	}

	entries, _ := s.ListAll(ctx)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	clock.Advance(time.Second)
	inserted, err = s.RecordLookup(ctx, paris())
	if err != nil || !inserted {
		t.Fatalf("RecordLookup() at window edge = %v, %v; want true, nil", inserted, err)
	}

	entries, _ = s.ListAll(ctx)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

func TestRecordLookup_DedupIsPerCity(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(store.NewMemoryStore(), clock)

	if _, err := s.RecordLookup(ctx, paris()); err != nil {
		t.Fatalf("RecordLookup() error = %v", err)
	}
	inserted, err := s.RecordLookup(ctx, history.Lookup{CityName: "Lyon", TempCelsius: 9})
	if err != nil || !inserted {
		t.Fatalf("RecordLookup(Lyon) = %v, %v; want true, nil", inserted, err)
	}
}

func TestRecordLookup_StoresLookupFields(t *testing.T) {
	ctx := context.Background()
	saved := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(store.NewMemoryStore(), &fakeClock{now: saved})

	if _, err := s.RecordLookup(ctx, paris()); err != nil {
		t.Fatalf("RecordLookup() error = %v", err)
	}

	entries, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	got := entries[0]
	if got.CityName != "Paris" || got.TempCelsius != 6.9 {
		t.Errorf("entry = %+v", got)
	}
	if got.IconCode == nil || *got.IconCode != "04d" {
		t.Errorf("IconCode = %v", got.IconCode)
	}
	if !got.SavedAt.Equal(saved) {
		t.Errorf("SavedAt = %v, want %v", got.SavedAt, saved)
	}
}

func TestRecordLookup_SweepsRetentionBoundary(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)
	retention := history.DefaultRetention

	seed := map[string]time.Time{
		"Old":      now.Add(-retention - time.Second),
		"Boundary": now.Add(-retention),
		"Young":    now.Add(-retention + time.Second),
	}
	for city, at := range seed {
		if err := repo.Insert(ctx, &history.Entry{CityName: city, SavedAt: at}); err != nil {
			t.Fatalf("seeding %s: %v", city, err)
		}
	}

	s := newTestStore(repo, &fakeClock{now: now})
	if _, err := s.RecordLookup(ctx, paris()); err != nil {
		t.Fatalf("RecordLookup() error = %v", err)
	}

	entries, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	kept := map[string]bool{}
	for _, e := range entries {
		kept[e.CityName] = true
	}
	if kept["Old"] {
		t.Error("entry older than retention was kept")
	}
	for _, city := range []string{"Boundary", "Young", "Paris"} {
		if !kept[city] {
			t.Errorf("%s was swept", city)
		}
	}
}

func TestRecordLookup_SkippedLookupDoesNotSweep(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(repo, clock)

	if _, err := s.RecordLookup(ctx, paris()); err != nil {
		t.Fatalf("RecordLookup() error = %v", err)
	}
	stale := &history.Entry{CityName: "Old", SavedAt: clock.now.Add(-30 * 24 * time.Hour)}
	if err := repo.Insert(ctx, stale); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	clock.Advance(time.Minute)
	if inserted, _ := s.RecordLookup(ctx, paris()); inserted {
		t.Fatal("expected dedup skip")
	}

	entries, _ := s.ListAll(ctx)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 (no sweep on skip)", len(entries))
	}
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	repo := store.NewMemoryStore()
	now := time.Date(2025, 3, 8, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		e := &history.Entry{CityName: "Old", SavedAt: now.Add(-8 * 24 * time.Hour)}
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := repo.Insert(ctx, &history.Entry{CityName: "New", SavedAt: now}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	s := newTestStore(repo, &fakeClock{now: now})
	n, err := s.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("SweepExpired() = %d, want 3", n)
	}
}

// failingRepo wraps a MemoryStore and fails selected operations.
type failingRepo struct {
	*store.MemoryStore
	failLatest bool
	failInsert bool
	failSweep  bool
	failList   bool
	failDelete bool
}

var errDisk = errors.New("disk I/O error")

func (r *failingRepo) LatestByCity(ctx context.Context, city string) (history.Entry, bool, error) {
	if r.failLatest {
		return history.Entry{}, false, errDisk
	}
	return r.MemoryStore.LatestByCity(ctx, city)
}

func (r *failingRepo) Insert(ctx context.Context, e *history.Entry) error {
	if r.failInsert {
		return errDisk
	}
	return r.MemoryStore.Insert(ctx, e)
}

func (r *failingRepo) DeleteSavedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.failSweep {
		return 0, errDisk
	}
	return r.MemoryStore.DeleteSavedBefore(ctx, cutoff)
}

func (r *failingRepo) List(ctx context.Context) ([]history.Entry, error) {
	if r.failList {
		return nil, errDisk
	}
	return r.MemoryStore.List(ctx)
}

func (r *failingRepo) Delete(ctx context.Context, id int64) error {
	if r.failDelete {
		return errDisk
	}
	return r.MemoryStore.Delete(ctx, id)
}

func TestRecordLookup_SweepFailureKeepsInsert(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryStore: store.NewMemoryStore(), failSweep: true}
	s := newTestStore(repo, &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)})

	inserted, err := s.RecordLookup(ctx, paris())
	if !inserted {
		t.Fatal("inserted = false, want true")
	}
	if !errors.Is(err, history.ErrStorage) {
		t.Fatalf("err = %v, want storage error", err)
	}

	var se *history.StorageError
	if !errors.As(err, &se) || se.Op != "sweep" {
		t.Fatalf("err = %#v, want StorageError{Op: sweep}", err)
	}

	entries, _ := repo.MemoryStore.List(ctx)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}

func TestStore_StorageErrors(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

	tests := []struct {
		name   string
		repo   *failingRepo
		run    func(*history.Store) error
		wantOp string
	}{
		{
			name: "latest",
			repo: &failingRepo{failLatest: true},
			run: func(s *history.Store) error {
				_, err := s.RecordLookup(ctx, paris())
				return err
			},
			wantOp: "latest",
		},
		{
			name: "insert",
			repo: &failingRepo{failInsert: true},
			run: func(s *history.Store) error {
				_, err := s.RecordLookup(ctx, paris())
				return err
			},
			wantOp: "insert",
		},
		{
			name: "list",
			repo: &failingRepo{failList: true},
			run: func(s *history.Store) error {
				_, err := s.ListAll(ctx)
				return err
			},
			wantOp: "list",
		},
		{
			name:   "delete",
			repo:   &failingRepo{failDelete: true},
			run:    func(s *history.Store) error { return s.Delete(ctx, 1) },
			wantOp: "delete",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.repo.MemoryStore = store.NewMemoryStore()
			err := tt.run(newTestStore(tt.repo, clock))

			var se *history.StorageError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *StorageError", err)
			}
			if se.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", se.Op, tt.wantOp)
			}
			if !errors.Is(err, errDisk) {
				t.Errorf("cause not preserved: %v", err)
			}
		})
	}
}

func TestStore_DeleteUnknownID(t *testing.T) {
	s := newTestStore(store.NewMemoryStore(), &fakeClock{now: time.Now()})

	err := s.Delete(context.Background(), 42)
	if !errors.Is(err, history.ErrEntryNotFound) {
		t.Fatalf("Delete() error = %v, want ErrEntryNotFound", err)
	}
	if errors.Is(err, history.ErrStorage) {
		t.Fatal("not-found must not be reported as a storage error")
	}
}

func TestNewStore_NormalizesPolicy(t *testing.T) {
	s := history.NewStore(store.NewMemoryStore(), history.Policy{DedupWindow: -time.Second}, logging.Discard())

	p := s.Policy()
	if p.Retention != history.DefaultRetention {
		t.Errorf("Retention = %v, want %v", p.Retention, history.DefaultRetention)
	}
	if p.DedupWindow != 0 {
		t.Errorf("DedupWindow = %v, want 0", p.DedupWindow)
	}
}

// slowRepo delays LatestByCity so concurrent callers overlap between the
// dedup check and the insert.
type slowRepo struct {
	*store.MemoryStore
	delay time.Duration
}

func (r *slowRepo) LatestByCity(ctx context.Context, city string) (history.Entry, bool, error) {
	time.Sleep(r.delay)
	return r.MemoryStore.LatestByCity(ctx, city)
}

func TestRecordLookup_ConcurrentCallersDedup(t *testing.T) {
	ctx := context.Background()
	repo := &slowRepo{MemoryStore: store.NewMemoryStore(), delay: 2 * time.Millisecond}
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(repo, clock)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.RecordLookup(ctx, paris())
			if err != nil {
				t.Errorf("RecordLookup() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}
	entries, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
}
