// Package grading implements the SmishGrade heuristic scorer: seven
// independent structural tests over a URL, each adding a fixed weight,
// summed into a verdict. No page content is ever fetched.
package grading

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Verdict is the final classification of one URL. The values appear
// verbatim in the results CSV.
type Verdict string

const (
	VerdictBenign     Verdict = "Benign"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictMalicious  Verdict = "Malicious"
	VerdictParseError Verdict = "Error-Parsing"
	VerdictNoHostname Verdict = "Error-No-Hostname"
)

// UnknownAge marks a domain whose creation date could not be determined.
const UnknownAge = -1

// AgeFunc resolves a registered domain to its age in days, or
// UnknownAge when the age cannot be determined.
type AgeFunc func(domain string) int

// Result is the outcome of grading a single URL. Heuristics lists the
// triggered tests in evaluation order (H1 through H7).
type Result struct {
	URL        string
	Score      int
	Verdict    Verdict
	Heuristics []Heuristic
	AgeDays    int
}

// Evaluate grades one URL. Heuristics are independent and additive;
// each contributes its weight at most once. A URL that cannot be
// parsed gets a zero score and an error verdict, and the age lookup is
// never consulted for it. Otherwise age is called exactly once, with
// the registered domain.
func (c Config) Evaluate(raw string, age AgeFunc) Result {
	feats, err := ParseFeatures(raw)
	if err != nil {
		verdict := VerdictParseError
		if errors.Is(err, ErrNoHostname) {
			verdict = VerdictNoHostname
		}
		return Result{URL: raw, Verdict: verdict, AgeDays: UnknownAge}
	}

	res := Result{URL: raw, AgeDays: UnknownAge}
	hit := func(h Heuristic) {
		res.Score += c.Weights[h]
		res.Heuristics = append(res.Heuristics, h)
	}

	// Characters, not bytes: non-ASCII URLs must not hit the limit early.
	if utf8.RuneCountInString(raw) > c.LongURLLength {
		hit(H1Length)
	}
	if feats.HostIsIP {
		hit(H2IPHostname)
	}
	if strings.Contains(raw, "@") {
		hit(H3AtSymbol)
	}
	path := strings.ToLower(feats.Path)
	for _, keyword := range c.SuspiciousKeywords {
		if strings.Contains(path, keyword) {
			// Counts once no matter how many keywords match.
			hit(H4Keywords)
			break
		}
	}
	// www.example.com has a single subdomain component and must not
	// trigger; three or more components is the threshold.
	if strings.Count(feats.Subdomain, ".") >= 2 {
		hit(H5Subdomains)
	}
	if c.AbusedTLDs[feats.TLD] {
		hit(H6AbusedTLD)
	}
	res.AgeDays = age(feats.Registered)
	if res.AgeDays >= 0 && res.AgeDays <= c.MaxDomainAgeDays {
		hit(H7DomainAge)
	}

	res.Verdict = VerdictBenign
	switch {
	case res.Score >= c.MaliciousThreshold:
		res.Verdict = VerdictMalicious
	case res.Score >= c.SuspiciousThreshold:
		res.Verdict = VerdictSuspicious
	}
	return res
}
