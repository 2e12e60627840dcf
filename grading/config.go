package grading

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Heuristic identifies one structural test. The names are stable: they
// appear verbatim in the Heuristics_Found column of the results CSV.
type Heuristic string

const (
	H1Length     Heuristic = "H1_Length"
	H2IPHostname Heuristic = "H2_IP_Hostname"
	H3AtSymbol   Heuristic = "H3_At_Symbol"
	H4Keywords   Heuristic = "H4_Keywords"
	H5Subdomains Heuristic = "H5_Subdomains"
	H6AbusedTLD  Heuristic = "H6_Abused_TLD"
	H7DomainAge  Heuristic = "H7_Domain_Age"
)

// Config holds every knob for a grading run: heuristic weights, verdict
// thresholds, the trend lists, and file locations. Build it once at
// startup and treat it as read-only afterwards.
type Config struct {
	Weights map[Heuristic]int

	// Any URL scoring at least SuspiciousThreshold is suspicious, at
	// least MaliciousThreshold malicious. A score of zero is benign.
	MaliciousThreshold  int
	SuspiciousThreshold int

	// Feel free to add to these lists based on new trends and findings.
	SuspiciousKeywords []string
	AbusedTLDs         map[string]bool

	LongURLLength    int
	MaxDomainAgeDays int

	LookupDelay time.Duration
	CacheFile   string
	ResultsFile string
}

// DefaultConfig returns the weights, thresholds and trend lists the
// framework ships with.
func DefaultConfig() Config {
	return Config{
		Weights: map[Heuristic]int{
			H1Length:     5,
			H2IPHostname: 40,
			H3AtSymbol:   10,
			H4Keywords:   5,
			H5Subdomains: 15,
			H6AbusedTLD:  20,
			H7DomainAge:  50,
		},
		MaliciousThreshold:  20,
		SuspiciousThreshold: 1,
		SuspiciousKeywords:  []string{"login", "verify", "secure", "account", "update", "bank"},
		AbusedTLDs: map[string]bool{
			".xyz":    true,
			".top":    true,
			".link":   true,
			".club":   true,
			".online": true,
			".live":   true,
		},
		LongURLLength:    75,
		MaxDomainAgeDays: 30,
		LookupDelay:      1500 * time.Millisecond,
		CacheFile:        "whois_cache.json",
		ResultsFile:      "smishgrade_results.csv",
	}
}

// LoadConfig builds the runtime configuration: defaults overridden by
// environment variables. A .env file is honoured when present.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v := os.Getenv("SMISHGRADE_CACHE_FILE"); v != "" {
		cfg.CacheFile = v
	}
	if v := os.Getenv("SMISHGRADE_RESULTS_FILE"); v != "" {
		cfg.ResultsFile = v
	}
	if v, err := strconv.Atoi(os.Getenv("SMISHGRADE_MALICIOUS_THRESHOLD")); err == nil && v > 0 {
		cfg.MaliciousThreshold = v
	}
	if v, err := strconv.Atoi(os.Getenv("SMISHGRADE_SUSPICIOUS_THRESHOLD")); err == nil && v > 0 {
		cfg.SuspiciousThreshold = v
	}
	if v, err := strconv.Atoi(os.Getenv("SMISHGRADE_LOOKUP_DELAY_MS")); err == nil && v >= 0 {
		cfg.LookupDelay = time.Duration(v) * time.Millisecond
	}
	return cfg
}
