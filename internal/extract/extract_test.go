package extract

import (
	"testing"
	"time"
)

func TestExtractor_Quarter(t *testing.T) {
	quarter, date, ok := New().Quarter("For the quarterly period ended March 31, 2023")
	if !ok {
		t.Fatal("Quarter() should match the quarterly period trigger")
	}
	if quarter != "q1" {
		t.Errorf("quarter = %q, want %q", quarter, "q1")
	}
	if date != "March 31, 2023" {
		t.Errorf("date = %q, want %q", date, "March 31, 2023")
	}
}

func TestExtractor_Quarter_Table(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantQuarter string
		wantDate    string
		wantOK      bool
	}{
		{"second quarter", "FORM 10-Q (Mark One) QUARTERLY REPORT For the quarterly period ended June 30, 2023", "q2", "June 30, 2023", true},
		{"third quarter", "For the quarterly period ended July 1, 2023", "q3", "July 1, 2023", true},
		{"third quarter abbreviated", "for the quarterly period ended Sept. 30, 2023", "q3", "Sept. 30, 2023", true},
		{"fourth quarter ending", "For the Quarterly Period Ending December 31, 2022", "q4", "December 31, 2022", true},
		{"annual report", "For the fiscal year ended September 24, 2022", "", "", false},
		{"empty", "", "", "", false},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quarter, date, ok := e.Quarter(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Quarter() ok = %v, want %v", ok, tt.wantOK)
			}
			if quarter != tt.wantQuarter || date != tt.wantDate {
				t.Errorf("Quarter() = (%q, %q), want (%q, %q)", quarter, date, tt.wantQuarter, tt.wantDate)
			}
		})
	}
}

func TestExtractor_FilingDate(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			name:   "annual report cover",
			text:   "ANNUAL REPORT PURSUANT TO SECTION 13 OR 15(d) For the fiscal year ended September 24, 2022",
			want:   "September 24, 2022",
			wantOK: true,
		},
		{
			name:   "quarterly report cover",
			text:   "QUARTERLY REPORT For the quarterly period ended April 1, 2023",
			want:   "April 1, 2023",
			wantOK: true,
		},
		{
			name:   "current report",
			text:   "Date of Report (Date of earliest event reported): February 2, 2023",
			want:   "February 2, 2023",
			wantOK: true,
		},
		{
			name:   "whitespace inside trigger",
			text:   "for   the\nfiscal year\tended  June 30, 2021",
			want:   "June 30, 2021",
			wantOK: true,
		},
		{
			name:   "submission header",
			text:   "CONFORMED PERIOD OF REPORT: 20230331 FILED AS OF DATE: 20230505",
			want:   "20230331",
			wantOK: true,
		},
		{
			name:   "no trigger",
			text:   "Apple designs, manufactures and markets smartphones.",
			want:   "",
			wantOK: false,
		},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.FilingDate(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("FilingDate() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("FilingDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractor_PrecedenceIsListOrder(t *testing.T) {
	// "as of" appears first in the text but later in the pattern list.
	text := "As of October 14, 2022, 15,908,118,000 shares were outstanding. " +
		"For the fiscal year ended September 24, 2022"

	p, date, ok := New().Match(text)
	if !ok {
		t.Fatal("Match() should succeed")
	}
	if p.Name != "for the fiscal year ended" {
		t.Errorf("winning pattern = %q, want %q", p.Name, "for the fiscal year ended")
	}
	if date != "September 24, 2022" {
		t.Errorf("date = %q, want %q", date, "September 24, 2022")
	}

	// Reversing precedence flips the result.
	custom := NewWithPatterns([]Pattern{
		trigger("as of", longDate),
		trigger("for the fiscal year ended", longDate),
	})
	if got, _ := custom.FilingDate(text); got != "October 14, 2022" {
		t.Errorf("custom FilingDate() = %q, want %q", got, "October 14, 2022")
	}
}

func TestDefaultPatterns_Table(t *testing.T) {
	if len(DefaultPatterns) < 40 {
		t.Errorf("len(DefaultPatterns) = %d, want at least 40", len(DefaultPatterns))
	}
	if DefaultPatterns[0].Name != "for the fiscal year ended" {
		t.Errorf("first pattern = %q", DefaultPatterns[0].Name)
	}

	index := func(name string) int {
		for i, p := range DefaultPatterns {
			if p.Name == name {
				return i
			}
		}
		return -1
	}
	if index("for the quarterly period ended") > index("as of") {
		t.Error("quarterly period trigger must outrank \"as of\"")
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{"March 31, 2023", want, false},
		{"MARCH 31, 2023", want, false},
		{"March 31 , 2023", want, false},
		{"March 31 2023", want, false},
		{"Mar. 31, 2023", want, false},
		{"20230331", want, false},
		{"2023-03-31", want, false},
		{"03/31/2023", want, false},
		{"Sept. 30, 2023", time.Date(2023, time.September, 30, 0, 0, 0, 0, time.UTC), false},
		{"September 24, 2022", time.Date(2022, time.September, 24, 0, 0, 0, 0, time.UTC), false},
		{"Smarch 1, 2023", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestQuarterOf(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "q1"},
		{time.March, "q1"},
		{time.April, "q2"},
		{time.June, "q2"},
		{time.September, "q3"},
		{time.October, "q4"},
		{time.December, "q4"},
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			if got := QuarterOf(tt.month); got != tt.want {
				t.Errorf("QuarterOf(%v) = %q, want %q", tt.month, got, tt.want)
			}
		})
	}
}

func TestIsQuarterly(t *testing.T) {
	tests := []struct {
		reportType string
		want       bool
	}{
		{"10-Q", true},
		{"10-q/a", true},
		{"10-K", false},
		{"8-K", false},
		{"13F-HR", false},
	}

	for _, tt := range tests {
		t.Run(tt.reportType, func(t *testing.T) {
			if got := IsQuarterly(tt.reportType); got != tt.want {
				t.Errorf("IsQuarterly(%q) = %v, want %v", tt.reportType, got, tt.want)
			}
		})
	}
}
