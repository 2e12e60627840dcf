package grading

import (
	"errors"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrNoHostname is returned when a URL parses but no hostname can be
// derived from it (empty string, scheme-only input, and so on).
var ErrNoHostname = errors.New("no hostname in URL")

// Features are the structural parts of a single URL, extracted once per
// grading call.
type Features struct {
	Raw        string
	Normalized string
	Hostname   string
	Path       string
	Registered string // domain plus public suffix, e.g. example.com
	Subdomain  string // everything left of the registered domain
	TLD        string // public suffix with a leading dot, lower-case
	HostIsIP   bool
}

// ParseFeatures normalizes and splits a raw URL. URLs without a scheme
// get http:// prepended before parsing so bare hostnames still resolve
// to a hostname rather than a path.
func ParseFeatures(raw string) (Features, error) {
	normalized := raw
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		normalized = "http://" + raw
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return Features{}, err
	}
	host := u.Hostname()
	if host == "" {
		return Features{}, ErrNoHostname
	}

	f := Features{
		Raw:        raw,
		Normalized: normalized,
		Hostname:   host,
		Path:       u.Path,
	}

	if net.ParseIP(host) != nil {
		// Literal addresses have no public suffix to split on. The
		// address itself stands in as the registered domain so the age
		// lookup still has a key.
		f.HostIsIP = true
		f.Registered = host
		return f, nil
	}

	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	registered, err := publicsuffix.EffectiveTLDPlusOne(lower)
	if err != nil {
		registered = lower
	}
	f.Registered = registered

	if suffix, _ := publicsuffix.PublicSuffix(lower); suffix != "" && suffix != lower {
		f.TLD = "." + suffix
	}
	if len(lower) > len(registered) {
		f.Subdomain = strings.TrimSuffix(lower[:len(lower)-len(registered)], ".")
	}
	return f, nil
}
