// Package registry loads and queries the rights registry: the operator-owned
// record of licensing agreements, trademark patterns, and blocked elements
// that the compliance gate consults. The registry is a YAML file edited by
// hand; a missing file yields an empty registry, which rejects everything
// that needs a record to pass.
package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scope captures the usage rights a license grants.
type Scope struct {
	Commercial bool `yaml:"commercial"`
	Social     bool `yaml:"social"`
}

// Record is one registry entry for a known reference.
type Record struct {
	ID                string   `yaml:"id"`
	Title             string   `yaml:"title"`
	Type              string   `yaml:"type"`
	Status            string   `yaml:"status"`
	Expires           string   `yaml:"expires"`
	Scope             Scope    `yaml:"scope"`
	ProofURL          string   `yaml:"proof_url"`
	TrademarkElements []string `yaml:"trademark_elements"`
	BlockedElements   []string `yaml:"blocked_elements"`
	AutoBlock         bool     `yaml:"auto_block"`
}

// Expired reports whether the record's expiry date has passed. Records
// without an expiry never expire.
func (r Record) Expired(now time.Time) bool {
	trimmed := strings.TrimSpace(r.Expires)
	if trimmed == "" {
		return false
	}
	expires, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		// Unparseable expiry is treated as expired: never assume a
		// license is live on malformed data.
		return true
	}
	return now.After(expires)
}

// Registry is the loaded rule set.
type Registry struct {
	Records           []Record `yaml:"records"`
	TrademarkPatterns []string `yaml:"trademark_patterns"`
	BlockedElements   []string `yaml:"blocked_elements"`

	byTitle map[string]Record
}

// Load reads the registry file at path. A missing file is not an error; it
// returns an empty registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			reg := &Registry{}
			reg.index()
			return reg, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes registry YAML.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	reg.index()
	return &reg, nil
}

func (r *Registry) index() {
	r.byTitle = make(map[string]Record, len(r.Records))
	for _, record := range r.Records {
		r.byTitle[NormalizeTitle(record.Title)] = record
	}
}

// Lookup finds the record for a reference title, if one exists.
func (r *Registry) Lookup(title string) (Record, bool) {
	record, ok := r.byTitle[NormalizeTitle(title)]
	return record, ok
}

// MatchTrademarks returns every trademark pattern found in the supplied text,
// combining the global pattern list with any record-level elements for the
// matched title.
func (r *Registry) MatchTrademarks(title, text string) []string {
	haystack := strings.ToLower(title + " " + text)
	var matched []string
	seen := map[string]struct{}{}
	patterns := append([]string{}, r.TrademarkPatterns...)
	if record, ok := r.Lookup(title); ok {
		patterns = append(patterns, record.TrademarkElements...)
	}
	for _, pattern := range patterns {
		needle := strings.ToLower(strings.TrimSpace(pattern))
		if needle == "" {
			continue
		}
		if _, dup := seen[needle]; dup {
			continue
		}
		if strings.Contains(haystack, needle) {
			matched = append(matched, strings.TrimSpace(pattern))
			seen[needle] = struct{}{}
		}
	}
	return matched
}

// MatchBlockedElements returns every blocked element found in the supplied
// text, combining global and record-level block lists.
func (r *Registry) MatchBlockedElements(title, text string) []string {
	haystack := strings.ToLower(title + " " + text)
	var matched []string
	seen := map[string]struct{}{}
	elements := append([]string{}, r.BlockedElements...)
	if record, ok := r.Lookup(title); ok {
		elements = append(elements, record.BlockedElements...)
	}
	for _, element := range elements {
		needle := strings.ToLower(strings.TrimSpace(element))
		if needle == "" {
			continue
		}
		if _, dup := seen[needle]; dup {
			continue
		}
		if strings.Contains(haystack, needle) {
			matched = append(matched, strings.TrimSpace(element))
			seen[needle] = struct{}{}
		}
	}
	return matched
}

// NormalizeTitle lowercases and collapses whitespace for registry matching.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
