// Package agecache memoizes WHOIS domain-age lookups. Lookups are
// expensive and rate-limited upstream, so every answer (failures
// included) is kept for the lifetime of the process and checkpointed
// to a JSON file that survives crashes.
package agecache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Unknown is stored when the creation date could not be determined.
// Failures are cached exactly like successes: a re-run must never pay
// for the same dead lookup twice.
const Unknown = -1

// Provider returns the creation date of a registered domain, or an
// error when it cannot be determined.
type Provider func(domain string) (time.Time, error)

// Cache maps registered domains to their age in days. Grading is
// sequential and the lookup path is the only writer, but the mutex lets
// an interrupt handler checkpoint the cache while a lookup is still in
// flight.
type Cache struct {
	path     string
	provider Provider
	pacer    *rate.Limiter

	mu      sync.Mutex
	entries map[string]int
}

// New builds a cache backed by the file at path. The pacer is waited on
// before every external query.
func New(path string, provider Provider, pacer *rate.Limiter) *Cache {
	return &Cache{
		path:     path,
		provider: provider,
		pacer:    pacer,
		entries:  make(map[string]int),
	}
}

// NewPacer returns a limiter that spaces external queries at least
// interval apart. The initial token is drained so the first query pays
// the full interval too: the delay throttles our request rate toward
// the WHOIS servers and must apply even when responses come back
// instantly.
func NewPacer(interval time.Duration) *rate.Limiter {
	l := rate.NewLimiter(rate.Every(interval), 1)
	l.AllowN(time.Now(), 1)
	return l
}

// Load reads the cache file into memory. A missing, unreadable or
// malformed file is not an error: grading starts over with an empty
// cache and the file is rewritten at the next checkpoint.
func (c *Cache) Load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info().Str("file", c.path).Msg("no cache file found, starting a new one")
		} else {
			log.Warn().Err(err).Str("file", c.path).Msg("could not read cache file, starting a new one")
		}
		c.reset(make(map[string]int))
		return
	}

	entries := make(map[string]int)
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn().Err(err).Str("file", c.path).Msg("cache file is broken, starting a new one")
		c.reset(make(map[string]int))
		return
	}
	c.reset(entries)
	log.Info().Int("entries", len(entries)).Str("file", c.path).Msg("loaded domain age cache")
}

// Save overwrites the cache file with every entry. Failures are logged
// and swallowed: a failed checkpoint must never abort a batch.
func (c *Cache) Save() {
	c.mu.Lock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	count := len(c.entries)
	c.mu.Unlock()
	if err != nil {
		log.Error().Err(err).Msg("could not marshal cache")
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		log.Error().Err(err).Str("file", c.path).Msg("could not save cache")
		return
	}
	log.Info().Int("entries", count).Str("file", c.path).Msg("cache saved")
}

// Len reports the number of cached domains.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Lookup returns the age in days for domain. Hits cost nothing; a miss
// waits out the pacing interval, queries the provider exactly once and
// caches whatever came back. Once a domain is present it is never
// queried again for the lifetime of the cache.
func (c *Cache) Lookup(ctx context.Context, domain string) int {
	c.mu.Lock()
	age, ok := c.entries[domain]
	c.mu.Unlock()
	if ok {
		return age
	}

	log.Info().Str("domain", domain).Msg("looking up domain age")
	if err := c.pacer.Wait(ctx); err != nil {
		// Cancelled before the query went out; nothing was learned, so
		// the domain stays uncached.
		return Unknown
	}

	created, err := c.provider(domain)
	if err != nil || created.IsZero() {
		if err != nil {
			log.Warn().Err(err).Str("domain", domain).Msg("domain age lookup failed")
		}
		c.store(domain, Unknown)
		return Unknown
	}

	age = int(time.Now().UTC().Sub(created.UTC()).Hours() / 24)
	c.store(domain, age)
	return age
}

func (c *Cache) store(domain string, age int) {
	c.mu.Lock()
	c.entries[domain] = age
	c.mu.Unlock()
}

func (c *Cache) reset(entries map[string]int) {
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
}
