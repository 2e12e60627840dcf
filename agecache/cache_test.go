package agecache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// unpaced returns a limiter that never blocks, so tests don't pay the
// throttle.
func unpaced() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// createdDaysAgo returns a creation date a little over days old, so the
// whole-day difference is exactly days regardless of test runtime.
func createdDaysAgo(days int) time.Time {
	return time.Now().UTC().Add(-time.Duration(days)*24*time.Hour - time.Hour)
}

func TestLookupIsIdempotent(t *testing.T) {
	calls := 0
	provider := func(string) (time.Time, error) {
		calls++
		return createdDaysAgo(10), nil
	}
	c := New(filepath.Join(t.TempDir(), "cache.json"), provider, unpaced())

	first := c.Lookup(context.Background(), "example.com")
	second := c.Lookup(context.Background(), "example.com")

	if calls != 1 {
		t.Fatalf("expected one provider call, got %d", calls)
	}
	if first != 10 || second != 10 {
		t.Fatalf("expected age 10 both times, got %d then %d", first, second)
	}
}

func TestFailedLookupsAreCached(t *testing.T) {
	calls := 0
	provider := func(string) (time.Time, error) {
		calls++
		return time.Time{}, errors.New("whois unavailable")
	}
	c := New(filepath.Join(t.TempDir(), "cache.json"), provider, unpaced())

	if age := c.Lookup(context.Background(), "example.com"); age != Unknown {
		t.Fatalf("expected sentinel %d, got %d", Unknown, age)
	}
	if age := c.Lookup(context.Background(), "example.com"); age != Unknown {
		t.Fatalf("expected sentinel %d on second lookup, got %d", Unknown, age)
	}
	if calls != 1 {
		t.Fatalf("failed lookups must not repeat, got %d provider calls", calls)
	}
}

func TestZeroCreationDateIsUnknown(t *testing.T) {
	provider := func(string) (time.Time, error) {
		return time.Time{}, nil
	}
	c := New(filepath.Join(t.TempDir(), "cache.json"), provider, unpaced())
	if age := c.Lookup(context.Background(), "example.com"); age != Unknown {
		t.Fatalf("missing creation date must map to %d, got %d", Unknown, age)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	ages := map[string]int{"a.com": 100, "b.com": 2, "c.com": Unknown}
	provider := func(domain string) (time.Time, error) {
		age, ok := ages[domain]
		if !ok || age == Unknown {
			return time.Time{}, errors.New("no record")
		}
		return createdDaysAgo(age), nil
	}

	c := New(path, provider, unpaced())
	c.Load()
	for domain := range ages {
		c.Lookup(context.Background(), domain)
	}
	c.Save()

	dead := func(string) (time.Time, error) {
		t.Fatal("reloaded cache must not query the provider")
		return time.Time{}, nil
	}
	reloaded := New(path, dead, unpaced())
	reloaded.Load()

	if reloaded.Len() != len(ages) {
		t.Fatalf("expected %d entries after reload, got %d", len(ages), reloaded.Len())
	}
	for domain, want := range ages {
		if got := reloaded.Lookup(context.Background(), domain); got != want {
			t.Errorf("%s: expected %d after reload, got %d", domain, want, got)
		}
	}
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "nope.json"), nil, unpaced())
	c.Load()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestLoadBrokenFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := New(path, nil, unpaced())
	c.Load()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache from broken file, got %d entries", c.Len())
	}
}

func TestPacerDelaysFirstLookup(t *testing.T) {
	const interval = 100 * time.Millisecond
	provider := func(string) (time.Time, error) {
		return createdDaysAgo(1), nil
	}
	c := New(filepath.Join(t.TempDir(), "cache.json"), provider, NewPacer(interval))

	start := time.Now()
	c.Lookup(context.Background(), "example.com")
	if elapsed := time.Since(start); elapsed < interval-20*time.Millisecond {
		t.Fatalf("first lookup must wait the pacing interval, waited %v", elapsed)
	}
}

func TestCancelledLookupStaysUncached(t *testing.T) {
	calls := 0
	provider := func(string) (time.Time, error) {
		calls++
		return createdDaysAgo(1), nil
	}
	c := New(filepath.Join(t.TempDir(), "cache.json"), provider, NewPacer(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if age := c.Lookup(ctx, "example.com"); age != Unknown {
		t.Fatalf("cancelled lookup should report %d, got %d", Unknown, age)
	}
	if calls != 0 {
		t.Fatalf("cancelled lookup must not reach the provider, got %d calls", calls)
	}
	if c.Len() != 0 {
		t.Fatalf("cancelled lookup must not be cached, got %d entries", c.Len())
	}
}

func TestSaveIsSafeWhileLookupsRun(t *testing.T) {
	// The interrupt handler checkpoints the cache from its own
	// goroutine while the batch loop may be mid-lookup.
	provider := func(string) (time.Time, error) {
		return createdDaysAgo(1), nil
	}
	c := New(filepath.Join(t.TempDir(), "cache.json"), provider, unpaced())

	const domains = 100
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < domains; i++ {
			c.Lookup(context.Background(), fmt.Sprintf("domain%d.com", i))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < domains; i++ {
			c.Save()
		}
	}()
	wg.Wait()

	if c.Len() != domains {
		t.Fatalf("expected %d entries, got %d", domains, c.Len())
	}
}

func TestSaveFailureDoesNotPanic(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, nil, unpaced()) // path is a directory, writes fail
	c.Save()
}

func ExampleCache_Lookup() {
	provider := func(string) (time.Time, error) {
		return time.Time{}, errors.New("unreachable")
	}
	c := New("whois_cache.json", provider, rate.NewLimiter(rate.Inf, 1))
	fmt.Println(c.Lookup(context.Background(), "example.com"))
	// Output: -1
}
