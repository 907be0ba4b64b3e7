package cache

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore(t *testing.T, opts ...func(*StoreConfig)) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := StoreConfig{
		Dir:             t.TempDir(),
		MaxSizeMB:       50,
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Hour, // tests sweep by hand
		Now:             clock.Now,
	}
	for _, o := range opts {
		o(&cfg)
	}
	s, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestPutGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	data := []byte(`{"count":2,"comments":[]}`)
	if err := s.Put("comments:1001", data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := s.Get("comments:1001")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(got) != string(data) {
		t.Errorf("expected %q, got %q", data, got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s, _ := newTestStore(t)
	if _, ok := s.Get("nope"); ok {
		t.Error("expected miss")
	}
	if st := s.Stats(); st.Misses != 1 {
		t.Errorf("expected 1 miss, got %d", st.Misses)
	}
}

func TestStaleEntryServedOnlyByLookup(t *testing.T) {
	s, clock := newTestStore(t)
	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	clock.Advance(2 * time.Hour)

	if _, ok := s.Get("k"); ok {
		t.Error("expected Get to miss a stale entry")
	}
	e, ok := s.Lookup("k")
	if !ok {
		t.Fatal("expected Lookup to return the stale entry")
	}
	if !e.Stale || string(e.Data) != "v" || e.Key != "k" {
		t.Errorf("expected stale entry k=v, got %+v", e)
	}

	st := s.Stats()
	if st.StaleHits != 1 || st.Misses != 1 || st.Hits != 0 {
		t.Errorf("expected 1 stale hit and 1 miss, got %+v", st)
	}
}

func TestMaxStaleDropsEntries(t *testing.T) {
	s, clock := newTestStore(t, func(cfg *StoreConfig) {
		cfg.MaxStale = 24 * time.Hour
	})
	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	clock.Advance(12 * time.Hour)
	if _, ok := s.Lookup("k"); !ok {
		t.Fatal("expected entry within MaxStale")
	}

	clock.Advance(24 * time.Hour)
	if _, ok := s.Lookup("k"); ok {
		t.Error("expected entry past MaxStale to be gone")
	}
	if _, err := os.Stat(filepath.Join(s.cfg.Dir, entryName("k")+".feed")); !os.IsNotExist(err) {
		t.Errorf("expected data file removed, stat err=%v", err)
	}
}

func TestZeroTTLNeverStale(t *testing.T) {
	s, clock := newTestStore(t)
	if err := s.PutWithTTL("forever", []byte("x"), 0); err != nil {
		t.Fatalf("PutWithTTL: %v", err)
	}
	clock.Advance(1000 * time.Hour)
	if _, ok := s.Get("forever"); !ok {
		t.Error("expected zero-TTL entry to stay fresh")
	}
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t)
	_ = s.Put("k", []byte("v"))
	s.Delete("k")
	s.Delete("missing")

	if _, ok := s.Lookup("k"); ok {
		t.Error("expected deleted key to miss")
	}
	if s.Stats().Size != 0 {
		t.Errorf("expected size 0, got %d", s.Stats().Size)
	}
}

func TestKeysMostRecentFirst(t *testing.T) {
	s, _ := newTestStore(t)
	for _, k := range []string{"a", "b", "c"} {
		_ = s.Put(k, []byte(k))
	}
	s.Get("a")

	got := strings.Join(s.Keys(), ",")
	if got != "a,c,b" {
		t.Errorf("expected a,c,b, got %s", got)
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t)
	_ = s.Put("a", []byte("1"))
	_ = s.Put("b", []byte("2"))

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Errorf("expected no keys, got %v", s.Keys())
	}
	entries, _ := os.ReadDir(s.cfg.Dir)
	if len(entries) != 0 {
		t.Errorf("expected empty directory, got %d files", len(entries))
	}
}

func TestSizeUpdatesOnOverwrite(t *testing.T) {
	s, _ := newTestStore(t)
	_ = s.Put("k", []byte("12345"))
	_ = s.Put("k", []byte("12"))

	st := s.Stats()
	if st.Size != 2 || st.Entries != 1 {
		t.Errorf("expected size 2 with 1 entry, got %+v", st)
	}
}

func TestEvictionPrefersStaleThenLRU(t *testing.T) {
	s, clock := newTestStore(t, func(cfg *StoreConfig) {
		cfg.MaxSizeMB = 1
	})
	big := make([]byte, 400*1024)

	_ = s.PutWithTTL("fresh-old", big, 0)
	_ = s.PutWithTTL("stale", big, time.Minute)
	clock.Advance(time.Hour)

	// Third entry overflows 1 MB; the stale one goes first even though
	// fresh-old is less recently used.
	_ = s.Put("new", big)

	if _, ok := s.Lookup("stale"); ok {
		t.Error("expected stale entry to be evicted first")
	}
	if _, ok := s.Get("fresh-old"); !ok {
		t.Error("expected fresh-old to survive")
	}

	_ = s.Put("newer", big)
	if _, ok := s.Get("new"); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if s.Stats().Evictions != 2 {
		t.Errorf("expected 2 evictions, got %d", s.Stats().Evictions)
	}
}

func TestNoTempFilesLeft(t *testing.T) {
	s, _ := newTestStore(t)
	_ = s.Put("atomic", []byte("complete"))

	raw, err := os.ReadFile(filepath.Join(s.cfg.Dir, entryName("atomic")+".feed"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(raw) != "complete" {
		t.Errorf("expected complete file, got %q", raw)
	}
	entries, _ := os.ReadDir(s.cfg.Dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestRestartRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cfg := StoreConfig{Dir: dir, DefaultTTL: time.Hour, CleanupInterval: time.Hour, Now: clock.Now}

	s1, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_ = s1.Put("persist", []byte("value"))
	_ = s1.Close()

	// Orphan and corrupt entries are dropped on scan.
	_ = os.WriteFile(filepath.Join(dir, "deadbeefdeadbeef.meta"), []byte("{}"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "0011223344556677.feed"), []byte("x"), 0644)
	_ = os.WriteFile(filepath.Join(dir, "0011223344556677.meta"), []byte("not json"), 0644)

	s2, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s2.Close()

	got, ok := s2.Get("persist")
	if !ok || string(got) != "value" {
		t.Errorf("expected persisted value, got %q ok=%v", got, ok)
	}
	if st := s2.Stats(); st.Entries != 1 || st.Size != int64(len("value")) {
		t.Errorf("expected one rebuilt entry, got %+v", st)
	}
	if _, err := os.Stat(filepath.Join(dir, "0011223344556677.feed")); !os.IsNotExist(err) {
		t.Error("expected corrupt entry removed")
	}
}

func TestSweepRemovesPastMaxStale(t *testing.T) {
	s, clock := newTestStore(t, func(cfg *StoreConfig) {
		cfg.MaxStale = time.Hour
	})
	_ = s.Put("old", []byte("1"))
	clock.Advance(3 * time.Hour)
	_ = s.Put("young", []byte("2"))

	s.sweep()

	if st := s.Stats(); st.Entries != 1 || st.Evictions != 1 {
		t.Errorf("expected one entry left after sweep, got %+v", st)
	}
}

func TestTypedHelpers(t *testing.T) {
	type feed struct {
		Unit  string   `json:"unit"`
		Texts []string `json:"texts"`
	}
	s, clock := newTestStore(t)

	want := feed{Unit: "1001", Texts: []string{"a", "b"}}
	if err := PutTyped(s, "feed", want); err != nil {
		t.Fatalf("PutTyped: %v", err)
	}
	got, ok := GetTyped[feed](s, "feed")
	if !ok || got.Unit != "1001" || len(got.Texts) != 2 {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	clock.Advance(2 * time.Hour)
	if _, ok := GetTyped[feed](s, "feed"); ok {
		t.Error("expected GetTyped to miss a stale entry")
	}
	got, stale, ok := LookupTyped[feed](s, "feed")
	if !ok || !stale || got.Unit != "1001" {
		t.Errorf("expected stale typed lookup, got %+v stale=%v ok=%v", got, stale, ok)
	}

	_ = s.Put("junk", []byte("not json"))
	if _, ok := GetTyped[feed](s, "junk"); ok {
		t.Error("expected invalid JSON to miss")
	}
}

func TestPutTypedUnmarshalable(t *testing.T) {
	s, _ := newTestStore(t)
	if err := PutTypedWithTTL(s, "ch", make(chan int), time.Minute); err == nil {
		t.Error("expected marshal error for a channel")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newTestStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i))
			for j := 0; j < 20; j++ {
				_ = s.Put(key, []byte{byte(j)})
				s.Get(key)
				s.Lookup(key)
			}
		}(i)
	}
	wg.Wait()
	if s.Stats().Entries != 8 {
		t.Errorf("expected 8 entries, got %d", s.Stats().Entries)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
