package agecache

import (
	"fmt"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
)

// creationLayouts covers the date formats registries put in the
// creation field of a WHOIS record.
var creationLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// WhoisCreationDate is the default Provider. It fetches the WHOIS
// record for domain and extracts its creation date. When the parser
// cannot identify the record for a subdomain (e.g. e.example.online),
// it retries on the parent domain.
func WhoisCreationDate(domain string) (time.Time, error) {
	raw, err := whois.Whois(domain)
	if err != nil {
		return time.Time{}, err
	}

	p, err := parser.Parse(raw)
	if err != nil || p.Domain == nil {
		parts := strings.Split(domain, ".")
		if len(parts) > 2 {
			return WhoisCreationDate(strings.Join(parts[1:], "."))
		}
		if err == nil {
			err = fmt.Errorf("no domain record for %s", domain)
		}
		return time.Time{}, err
	}

	createdStr := strings.TrimSpace(p.Domain.CreatedDate)
	if createdStr == "" {
		return time.Time{}, fmt.Errorf("no creation date for %s", domain)
	}

	// First layout that parses wins.
	for _, layout := range creationLayouts {
		if t, err := time.Parse(layout, createdStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable creation date %q for %s", createdStr, domain)
}
