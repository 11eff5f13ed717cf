package extract

import (
	"regexp"
	"strings"
)

// Pattern is one trigger phrase and the date it captures. The first capture
// group is the date text.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

const (
	monthName = `(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sept|Sep|Oct|Nov|Dec)\.?`
	longDate  = monthName + `\s+\d{1,2}\s*,?\s*\d{4}`
	compact   = `\d{8}`
	slashed   = `\d{1,2}/\d{1,2}/\d{4}`
)

// trigger builds a case-insensitive pattern for phrase followed by a date
// matching datePattern. Spaces in phrase match any run of whitespace.
func trigger(phrase, datePattern string) Pattern {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	expr := `(?i)\b` + strings.Join(words, `\s+`) + `\s*[:\-]?\s*(` + datePattern + `)`
	return Pattern{Name: phrase, Re: regexp.MustCompile(expr)}
}

// DefaultPatterns is evaluated in order; the first pattern that matches
// anywhere in the text wins, regardless of where in the text it matched.
var DefaultPatterns = []Pattern{
	trigger("for the fiscal year ended", longDate),
	trigger("for the fiscal year ending", longDate),
	trigger("for the quarterly period ended", longDate),
	trigger("for the quarterly period ending", longDate),
	trigger("for the transition period ended", longDate),
	trigger("report for the calendar year or quarter ended", longDate),
	trigger("for the year ended", longDate),
	trigger("for the year ending", longDate),
	trigger("fiscal year ended", longDate),
	trigger("fiscal year ending", longDate),
	trigger("for the quarter ended", longDate),
	trigger("for the three months ended", longDate),
	trigger("for the six months ended", longDate),
	trigger("for the nine months ended", longDate),
	trigger("for the twelve months ended", longDate),
	trigger("for the period ended", longDate),
	trigger("for the period ending", longDate),
	trigger("quarterly period ended", longDate),
	trigger("date of report (date of earliest event reported)", longDate),
	trigger("date of earliest event reported", longDate),
	trigger("date of event which requires filing of this statement", longDate),
	trigger("date of report", longDate),
	trigger("period of report", longDate),
	trigger("as of and for the year ended", longDate),
	trigger("year ended", longDate),
	trigger("quarter ended", longDate),
	trigger("three months ended", longDate),
	trigger("months ended", longDate),
	trigger("period ended", longDate),
	trigger("dated as of", longDate),
	trigger("dated", longDate),
	trigger("filed on", longDate),
	trigger("as of", longDate),
	trigger("date", longDate),
	trigger("conformed period of report", compact),
	trigger("period of report", compact),
	trigger("filed as of date", compact),
	trigger("date as of change", compact),
	trigger("period ended", slashed),
	trigger("as of", slashed),
}

// quarterPatterns are the triggers that identify a quarterly period end.
var quarterPatterns = []Pattern{
	trigger("for the quarterly period ended", longDate),
	trigger("for the quarterly period ending", longDate),
	trigger("quarterly period ended", longDate),
}
