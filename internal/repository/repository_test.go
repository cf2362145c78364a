package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"glucotrack/internal/ident"
	"glucotrack/internal/kv"
	"glucotrack/internal/observability"
	"glucotrack/pkg/domain"
)

type sample struct {
	domain.Base
	Name  string          `json:"name"`
	Value float64         `json:"value"`
	Tag   *string         `json:"tag,omitempty"`
	Done  bool            `json:"done"`
	At    ident.Timestamp `json:"at"`
}

func (s sample) WithBase(b domain.Base) sample { s.Base = b; return s }

var _ Collection = (*Repository[sample])(nil)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return strconv.Itoa(n)
	}
}

func newSampleRepo(t *testing.T, opts ...Option) (*Repository[sample], *kv.Adapter) {
	t.Helper()
	store := kv.NewAdapter(kv.NewMemory())
	return New[sample]("samples", store, opts...), store
}

func mustCreate(t *testing.T, repo *Repository[sample], s sample) sample {
	t.Helper()
	created, err := repo.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return created
}

func ids(items []sample) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestCreateFindByIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2025, 3, 4, 5, 6, 7, 891_234_000, time.UTC)}
	repo, _ := newSampleRepo(t, WithClock(clock))
	tag := "fasting"

	created := mustCreate(t, repo, sample{Name: "a", Value: 101.5, Tag: &tag, Base: domain.Base{ID: "ignored"}})
	if created.ID == "" || created.ID == "ignored" {
		t.Fatalf("expected a generated id, got %q", created.ID)
	}
	want := ident.TimestampOf(clock.now)
	if !created.CreatedAt.Equal(want.Time) || !created.UpdatedAt.Equal(created.CreatedAt.Time) {
		t.Fatalf("expected shared creation timestamp %s, got %+v", want, created.Base)
	}

	found, ok := repo.FindByID(ctx, created.ID)
	if !ok {
		t.Fatalf("expected entity to be found")
	}
	if diff := cmp.Diff(created, found); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, ok := repo.FindByID(ctx, "missing"); ok {
		t.Fatalf("expected missing id to report false")
	}
}

func TestCreateProducesDistinctIDs(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	const n = 2000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		created, err := repo.Create(ctx, sample{Value: float64(i)})
		if err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		if _, dup := seen[created.ID]; dup {
			t.Fatalf("duplicate id %s", created.ID)
		}
		seen[created.ID] = struct{}{}
	}
	if count, err := repo.Count(ctx, nil); err != nil || count != n {
		t.Fatalf("expected %d entities, got %d (%v)", n, count, err)
	}
}

func TestConcurrentCreatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.Create(ctx, sample{Value: float64(i)}); err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()
	if count, _ := repo.Count(ctx, nil); count != 50 {
		t.Fatalf("expected 50 entities after concurrent creates, got %d", count)
	}
}

func TestUpdatePreservesIdentityFields(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo, _ := newSampleRepo(t, WithClock(clock))
	original := mustCreate(t, repo, sample{Name: "before", Value: 1})

	clock.Advance(90 * time.Second)
	updated, ok, err := repo.Update(ctx, original.ID, func(s *sample) error {
		s.Name = "after"
		s.ID = "hijacked"
		s.CreatedAt = ident.TimestampOf(time.Unix(0, 0))
		return nil
	})
	if err != nil || !ok {
		t.Fatalf("update: %v %v", ok, err)
	}
	if updated.ID != original.ID || !updated.CreatedAt.Equal(original.CreatedAt.Time) {
		t.Fatalf("identity fields changed: %+v", updated.Base)
	}
	if !updated.UpdatedAt.After(original.UpdatedAt.Time) {
		t.Fatalf("expected updatedAt to advance: %s -> %s", original.UpdatedAt, updated.UpdatedAt)
	}
	if updated.Name != "after" || updated.Value != 1 {
		t.Fatalf("unexpected fields %+v", updated)
	}
	stored, _ := repo.FindByID(ctx, original.ID)
	if diff := cmp.Diff(updated, stored); diff != "" {
		t.Fatalf("persisted update mismatch (-want +got):\n%s", diff)
	}

	clock.Advance(-time.Hour)
	again, _, err := repo.Update(ctx, original.ID, nil)
	if err != nil {
		t.Fatalf("update with nil mutate: %v", err)
	}
	if again.UpdatedAt.Before(again.CreatedAt.Time) {
		t.Fatalf("updatedAt must never precede createdAt")
	}
}

func TestUpdateKeepsUpdatedAtMonotonicWhenClockStepsBack(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo, _ := newSampleRepo(t, WithClock(clock))
	created := mustCreate(t, repo, sample{Name: "a"})

	clock.Advance(time.Hour)
	first, _, err := repo.Update(ctx, created.ID, func(s *sample) error { s.Value = 1; return nil })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	clock.Advance(-30 * time.Minute)
	second, _, err := repo.Update(ctx, created.ID, func(s *sample) error { s.Value = 2; return nil })
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if second.UpdatedAt.Before(first.UpdatedAt.Time) {
		t.Fatalf("updatedAt moved backwards: %s -> %s", first.UpdatedAt, second.UpdatedAt)
	}
	patched, _, err := repo.Patch(ctx, created.ID, map[string]any{"value": 3})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if patched.UpdatedAt.Before(second.UpdatedAt.Time) {
		t.Fatalf("patch moved updatedAt backwards: %s -> %s", second.UpdatedAt, patched.UpdatedAt)
	}
}

func TestUpdateMissingOrFailingHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	original := mustCreate(t, repo, sample{Name: "keep"})

	if _, ok, err := repo.Update(ctx, "missing", func(s *sample) error { s.Name = "x"; return nil }); ok || err != nil {
		t.Fatalf("expected missing update to report false, got %v %v", ok, err)
	}
	boom := errors.New("rejected")
	if _, _, err := repo.Update(ctx, original.ID, func(s *sample) error { s.Name = "changed"; return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected mutate error, got %v", err)
	}
	stored, _ := repo.FindByID(ctx, original.ID)
	if diff := cmp.Diff(original, stored); diff != "" {
		t.Fatalf("failed update mutated state (-want +got):\n%s", diff)
	}
}

func TestPatchMergesPartialData(t *testing.T) {
	ctx := context.Background()
	tag := "old"
	repo, _ := newSampleRepo(t)
	original := mustCreate(t, repo, sample{Name: "n", Value: 5, Tag: &tag})

	patched, ok, err := repo.Patch(ctx, original.ID, map[string]any{
		"value":     7.5,
		"tag":       nil,
		"id":        "ignored",
		"createdAt": "1999-01-01T00:00:00.000Z",
	})
	if err != nil || !ok {
		t.Fatalf("patch: %v %v", ok, err)
	}
	if patched.Value != 7.5 || patched.Tag != nil || patched.Name != "n" {
		t.Fatalf("unexpected patch result %+v", patched)
	}
	if patched.ID != original.ID || !patched.CreatedAt.Equal(original.CreatedAt.Time) {
		t.Fatalf("patch changed identity fields: %+v", patched.Base)
	}

	if _, _, err := repo.Patch(ctx, original.ID, map[string]any{"value": "not a number"}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch for type mismatch, got %v", err)
	}
	if _, _, err := repo.Patch(ctx, original.ID, map[string]any{"unknown": 1}); !errors.Is(err, ErrInvalidPatch) {
		t.Fatalf("expected ErrInvalidPatch for unknown field, got %v", err)
	}
	if _, ok, err := repo.Patch(ctx, "missing", map[string]any{"value": 1}); ok || err != nil {
		t.Fatalf("expected missing patch to report false, got %v %v", ok, err)
	}
}

func TestDeleteIsIdempotentSafe(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	a := mustCreate(t, repo, sample{Name: "a"})
	b := mustCreate(t, repo, sample{Name: "b"})

	if removed, err := repo.Delete(ctx, "missing"); removed || err != nil {
		t.Fatalf("expected false for missing id, got %v %v", removed, err)
	}
	all, _ := repo.FindMany(ctx, nil)
	if len(all) != 2 {
		t.Fatalf("missing delete changed collection: %v", ids(all))
	}
	if removed, err := repo.Delete(ctx, a.ID); !removed || err != nil {
		t.Fatalf("expected delete to succeed, got %v %v", removed, err)
	}
	all, _ = repo.FindMany(ctx, nil)
	if diff := cmp.Diff([]string{b.ID}, ids(all)); diff != "" {
		t.Fatalf("unexpected remaining ids (-want +got):\n%s", diff)
	}
	if removed, _ := repo.Delete(ctx, a.ID); removed {
		t.Fatalf("second delete must report false")
	}
}

type countingStore struct {
	*kv.Adapter
	sets int
}

func (c *countingStore) Set(ctx context.Context, key string, value any) error {
	c.sets++
	return c.Adapter.Set(ctx, key, value)
}

func TestDeleteOfUnknownIDStillPersists(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Adapter: kv.NewAdapter(kv.NewMemory())}
	repo := New[sample]("samples", store)
	kept := mustCreate(t, repo, sample{Name: "keep"})
	before := store.sets

	if removed, err := repo.Delete(ctx, "missing"); removed || err != nil {
		t.Fatalf("expected false for missing id, got %v %v", removed, err)
	}
	if store.sets != before+1 {
		t.Fatalf("expected one write for an unmatched delete, got %d", store.sets-before)
	}
	if _, ok := repo.FindByID(ctx, kept.ID); !ok {
		t.Fatalf("unmatched delete dropped %s", kept.ID)
	}

	boom := errors.New("read-only")
	failing := New[sample]("samples", &failingStore{err: boom})
	if removed, err := failing.Delete(ctx, "missing"); removed || !errors.Is(err, boom) {
		t.Fatalf("expected write error from delete, got %v %v", removed, err)
	}
}

func TestFindManyRangeFilter(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	values := []float64{40, 70, 99.5, 100, 140, 180, 181, 250}
	for _, v := range values {
		mustCreate(t, repo, sample{Value: v})
	}
	got, err := repo.FindMany(ctx, Where("value", Gte(70), Lte(180)))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	var gotValues []float64
	for _, s := range got {
		gotValues = append(gotValues, s.Value)
	}
	if diff := cmp.Diff([]float64{70, 99.5, 100, 140, 180}, gotValues); diff != "" {
		t.Fatalf("range filter mismatch (-want +got):\n%s", diff)
	}

	ints, err := repo.FindMany(ctx, Where("value", Gt(99), Lt(141)))
	if err != nil || len(ints) != 3 {
		t.Fatalf("expected Go ints to compare numerically, got %d (%v)", len(ints), err)
	}
}

func TestFindManyConcreteOrdering(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t, WithIDGenerator(sequentialIDs()))
	for _, v := range []float64{3, 1, 2} {
		mustCreate(t, repo, sample{Value: v})
	}

	sorted, err := repo.FindMany(ctx, nil, SortBy("value", Asc))
	if err != nil {
		t.Fatalf("sorted find: %v", err)
	}
	if diff := cmp.Diff([]string{"2", "3", "1"}, ids(sorted)); diff != "" {
		t.Fatalf("sort mismatch (-want +got):\n%s", diff)
	}

	page, err := repo.FindMany(ctx, Filter{}, WithSkip(1), WithLimit(1))
	if err != nil {
		t.Fatalf("paged find: %v", err)
	}
	if diff := cmp.Diff([]string{"2"}, ids(page)); diff != "" {
		t.Fatalf("page mismatch (-want +got):\n%s", diff)
	}
}

func TestSortIsStableAndMultiKey(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t, WithIDGenerator(sequentialIDs()))
	for _, s := range []sample{
		{Name: "b", Value: 1},
		{Name: "a", Value: 2},
		{Name: "b", Value: 0},
		{Name: "a", Value: 2},
		{Name: "c", Value: 1},
	} {
		mustCreate(t, repo, s)
	}

	byName, err := repo.FindMany(ctx, nil, SortBy("name", Asc))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]string{"2", "4", "1", "3", "5"}, ids(byName)); diff != "" {
		t.Fatalf("stable sort mismatch (-want +got):\n%s", diff)
	}

	multi, err := repo.FindMany(ctx, nil, SortBy("value", Desc), SortBy("name", Asc))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]string{"2", "4", "1", "5", "3"}, ids(multi)); diff != "" {
		t.Fatalf("multi-key sort mismatch (-want +got):\n%s", diff)
	}
}

func TestSortPlacesMissingFirstAndComparesTimestamps(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t, WithIDGenerator(sequentialIDs()))
	tag := "x"
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mustCreate(t, repo, sample{Tag: &tag, At: ident.TimestampOf(base.Add(2 * time.Hour))})
	mustCreate(t, repo, sample{At: ident.TimestampOf(base)})
	mustCreate(t, repo, sample{Tag: &tag, At: ident.TimestampOf(base.Add(time.Hour))})

	byTag, err := repo.FindMany(ctx, nil, SortBy("tag", Asc))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if byTag[0].ID != "2" {
		t.Fatalf("expected entity without tag first, got %v", ids(byTag))
	}

	newest, err := repo.FindMany(ctx, nil, SortBy("at", Desc))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "3", "2"}, ids(newest)); diff != "" {
		t.Fatalf("timestamp sort mismatch (-want +got):\n%s", diff)
	}

	window, err := repo.FindMany(ctx, Where("at", Gte(base.Add(30*time.Minute).Format(time.RFC3339)), Lt(ident.TimestampOf(base.Add(2*time.Hour)))))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]string{"3"}, ids(window)); diff != "" {
		t.Fatalf("timestamp range mismatch (-want +got):\n%s", diff)
	}
}

func TestPaginationComposition(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	for i := 0; i < 7; i++ {
		mustCreate(t, repo, sample{Value: float64(i % 3), Name: fmt.Sprint(i)})
	}
	filter := Where("value", Ne(2))
	full, err := repo.FindMany(ctx, filter, SortBy("value", Desc))
	if err != nil {
		t.Fatalf("full: %v", err)
	}
	for skip := 0; skip <= len(full)+2; skip++ {
		for limit := 0; limit <= len(full)+1; limit++ {
			page, err := repo.FindMany(ctx, filter, SortBy("value", Desc), WithSkip(skip), WithLimit(limit))
			if err != nil {
				t.Fatalf("page %d/%d: %v", skip, limit, err)
			}
			lo := min(skip, len(full))
			hi := min(skip+limit, len(full))
			if diff := cmp.Diff(ids(full[lo:hi]), ids(page)); diff != "" {
				t.Fatalf("skip=%d limit=%d mismatch (-want +got):\n%s", skip, limit, diff)
			}
		}
	}
	rest, err := repo.FindMany(ctx, filter, WithSkip(2))
	if err != nil || len(rest) != len(full)-2 {
		t.Fatalf("omitted limit should be unlimited: %d %v", len(rest), err)
	}
}

func TestInvalidQueriesAndFilters(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	mustCreate(t, repo, sample{})

	for name, opt := range map[string]QueryOption{
		"negative skip":  WithSkip(-1),
		"negative limit": WithLimit(-3),
		"empty sort":     SortBy(" ", Asc),
		"bad direction":  SortBy("value", Direction(9)),
	} {
		if _, err := repo.FindMany(ctx, nil, opt); !errors.Is(err, ErrInvalidQuery) {
			t.Fatalf("%s: expected ErrInvalidQuery, got %v", name, err)
		}
	}
	if _, err := repo.FindMany(ctx, Filter{"value": {{Op: "like", Value: 1}}}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter, got %v", err)
	}
	if _, _, err := repo.FindFirst(ctx, Filter{"": {Eq(1)}}); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for empty field, got %v", err)
	}
	if _, err := repo.Count(ctx, Where("value", Eq(func() {}))); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("expected ErrInvalidFilter for unencodable operand, got %v", err)
	}
}

func TestThenByInsertionBreaksTies(t *testing.T) {
	ctx := context.Background()
	clock := &fixedClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo, _ := newSampleRepo(t, WithClock(clock), WithIDGenerator(sequentialIDs()))
	for _, name := range []string{"a", "b", "c"} {
		mustCreate(t, repo, sample{Name: name, Value: 1})
	}
	mustCreate(t, repo, sample{Name: "d", Value: 0})

	got, err := repo.FindMany(ctx, nil, SortBy(domain.FieldCreatedAt, Desc), ThenByInsertion(Desc))
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if diff := cmp.Diff([]string{"4", "3", "2", "1"}, ids(got)); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}
	got, _ = repo.FindMany(ctx, nil, SortBy("value", Asc), ThenByInsertion(Desc))
	if diff := cmp.Diff([]string{"4", "3", "2", "1"}, ids(got)); diff != "" {
		t.Fatalf("sort keys must win over insertion order (-want +got):\n%s", diff)
	}
	got, _ = repo.FindMany(ctx, nil, SortBy(domain.FieldCreatedAt, Desc))
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, ids(got)); diff != "" {
		t.Fatalf("ties without a tie-breaker keep stored order (-want +got):\n%s", diff)
	}
	if _, err := repo.FindMany(ctx, nil, ThenByInsertion(Direction(7))); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

type opRecorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *opRecorder) Observe(_ context.Context, op string, _ bool, _ time.Duration) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func TestReadsAreInstrumented(t *testing.T) {
	ctx := context.Background()
	rec := &opRecorder{}
	repo, _ := newSampleRepo(t, WithInstrumentation(observability.Instrumentation{Metrics: rec}))
	created := mustCreate(t, repo, sample{Name: "x"})
	if _, ok := repo.FindByID(ctx, created.ID); !ok {
		t.Fatalf("FindByID missed %s", created.ID)
	}
	if _, err := repo.Count(ctx, nil); err != nil {
		t.Fatalf("count: %v", err)
	}
	want := []string{"samples.create", "samples.get", "samples.count"}
	if diff := cmp.Diff(want, rec.ops); diff != "" {
		t.Fatalf("unexpected operations (-want +got):\n%s", diff)
	}
}

func TestFindFirstHonoursSort(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t, WithIDGenerator(sequentialIDs()))
	for _, v := range []float64{5, 9, 1} {
		mustCreate(t, repo, sample{Value: v})
	}
	first, ok, err := repo.FindFirst(ctx, nil)
	if err != nil || !ok || first.ID != "1" {
		t.Fatalf("expected insertion-order first, got %v %v %v", first.ID, ok, err)
	}
	top, ok, err := repo.FindFirst(ctx, nil, SortBy("value", Desc))
	if err != nil || !ok || top.ID != "2" {
		t.Fatalf("expected highest value first, got %v %v %v", top.ID, ok, err)
	}
	if _, ok, err := repo.FindFirst(ctx, Where("value", Gt(100))); ok || err != nil {
		t.Fatalf("expected no match, got %v %v", ok, err)
	}
}

func TestEmptyCollectionReturnsEmptySlice(t *testing.T) {
	repo, _ := newSampleRepo(t)
	items, err := repo.FindMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", items)
	}
}

func TestCollectionViewBoxesEntities(t *testing.T) {
	ctx := context.Background()
	repo, _ := newSampleRepo(t)
	created := mustCreate(t, repo, sample{Name: "boxed"})
	var view Collection = repo
	if view.Key() != "samples" {
		t.Fatalf("unexpected key %s", view.Key())
	}
	items, err := view.FindAny(ctx, Where("name", Eq("boxed")))
	if err != nil || len(items) != 1 {
		t.Fatalf("find any: %v %v", items, err)
	}
	if got, ok := items[0].(sample); !ok || got.ID != created.ID {
		t.Fatalf("unexpected boxed item %#v", items[0])
	}
	if _, ok := view.GetAny(ctx, created.ID); !ok {
		t.Fatalf("expected GetAny hit")
	}
	if _, ok := view.GetAny(ctx, "missing"); ok {
		t.Fatalf("expected GetAny miss")
	}
	if removed, err := view.Remove(ctx, created.ID); !removed || err != nil {
		t.Fatalf("remove: %v %v", removed, err)
	}
}

type failingStore struct {
	err error
}

func (f *failingStore) Get(context.Context, string, any) bool { return false }

func (f *failingStore) Set(context.Context, string, any) error { return f.err }

func TestWriteFailuresAreSurfaced(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	repo := New[sample]("samples", &failingStore{err: boom})
	_, err := repo.Create(ctx, sample{Name: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if count, _ := repo.Count(ctx, nil); count != 0 {
		t.Fatalf("failed create must not be visible")
	}
}

func TestPersistedCollectionIsJSONArray(t *testing.T) {
	ctx := context.Background()
	repo, store := newSampleRepo(t)
	created := mustCreate(t, repo, sample{Name: "json"})
	var raw []map[string]any
	if !store.Get(ctx, "samples", &raw) || len(raw) != 1 {
		t.Fatalf("expected one stored document, got %v", raw)
	}
	if raw[0]["id"] != created.ID || raw[0]["name"] != "json" {
		t.Fatalf("unexpected stored document %v", raw[0])
	}
	if _, ok := raw[0]["createdAt"].(string); !ok {
		t.Fatalf("expected createdAt string, got %T", raw[0]["createdAt"])
	}
	if removed, _ := repo.Delete(ctx, created.ID); !removed {
		t.Fatalf("delete failed")
	}
	raw = nil
	if !store.Get(ctx, "samples", &raw) || raw == nil || len(raw) != 0 {
		t.Fatalf("expected empty array after deleting last entity, got %#v", raw)
	}
}
