// Package extract derives filing metadata from unstructured document text.
package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Extractor evaluates an ordered pattern list against document text.
type Extractor struct {
	patterns []Pattern
	quarter  []Pattern
}

// New returns an Extractor using DefaultPatterns.
func New() *Extractor {
	return &Extractor{patterns: DefaultPatterns, quarter: quarterPatterns}
}

// NewWithPatterns returns an Extractor with a custom precedence list.
func NewWithPatterns(patterns []Pattern) *Extractor {
	return &Extractor{patterns: patterns, quarter: quarterPatterns}
}

// Match returns the first pattern, in list order, that matches text along
// with the captured date.
func (e *Extractor) Match(text string) (Pattern, string, bool) {
	for _, p := range e.patterns {
		if m := p.Re.FindStringSubmatch(text); m != nil {
			return p, strings.TrimSpace(m[1]), true
		}
	}
	return Pattern{}, "", false
}

// FilingDate returns the date captured by the highest-precedence matching
// pattern. ok is false when nothing matched.
func (e *Extractor) FilingDate(text string) (string, bool) {
	_, date, ok := e.Match(text)
	return date, ok
}

// Quarter matches the quarterly-period trigger and returns the calendar
// quarter (q1..q4) of the captured date together with the date text.
func (e *Extractor) Quarter(text string) (quarter, date string, ok bool) {
	for _, p := range e.quarter {
		m := p.Re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		date = strings.TrimSpace(m[1])
		t, err := ParseDate(date)
		if err != nil {
			return "", "", false
		}
		return QuarterOf(t.Month()), date, true
	}
	return "", "", false
}

// QuarterOf labels the calendar quarter containing month.
func QuarterOf(month time.Month) string {
	return fmt.Sprintf("q%d", (int(month)-1)/3+1)
}

// IsQuarterly reports whether reportType is a quarterly report form.
func IsQuarterly(reportType string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(reportType)), "10-Q")
}

var (
	commaSpacing = regexp.MustCompile(`\s*,\s*`)
	monthDot     = regexp.MustCompile(`^([A-Za-z]+)\.`)
)

var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"20060102",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// ParseDate parses the date forms produced by the extraction patterns.
func ParseDate(s string) (time.Time, error) {
	norm := strings.Join(strings.Fields(s), " ")
	norm = commaSpacing.ReplaceAllString(norm, ", ")
	norm = monthDot.ReplaceAllString(norm, "$1")
	if month, rest, ok := strings.Cut(norm, " "); ok && strings.EqualFold(month, "sept") {
		norm = "Sep " + rest
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, norm); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
