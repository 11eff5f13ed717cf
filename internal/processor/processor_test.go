package processor

import (
	"strings"
	"testing"
)

func TestProcessor_ConvertHTMLToMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string // Expected substrings in output
	}{
		{
			name: "converts headings",
			html: `<html><body><h1>Annual Report</h1><h2>Item 1. Business</h2></body></html>`,
			contains: []string{
				"# Annual Report",
				"## Item 1. Business",
			},
		},
		{
			name: "converts paragraphs",
			html: `<html><body><p>Net sales increased.</p><p>Gross margin decreased.</p></body></html>`,
			contains: []string{
				"Net sales increased.",
				"Gross margin decreased.",
			},
		},
		{
			name: "converts links",
			html: `<html><body><p>See <a href="https://www.sec.gov">EDGAR</a>.</p></body></html>`,
			contains: []string{
				"[EDGAR](https://www.sec.gov)",
			},
		},
		{
			name: "converts lists",
			html: `<html><body><ul><li>Risk Factors</li><li>Properties</li></ul></body></html>`,
			contains: []string{
				"Risk Factors",
				"Properties",
			},
		},
	}

	p := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Convert(tt.html)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}

			for _, expected := range tt.contains {
				if !strings.Contains(result, expected) {
					t.Errorf("expected output to contain %q, got:\n%s", expected, result)
				}
			}
		})
	}
}

func TestProcessor_Convert_EmptyInput(t *testing.T) {
	result, err := New().Convert("")
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result != "" {
		t.Errorf("Convert(\"\") = %q, want empty", result)
	}
}

func TestProcessor_ExtractTitle(t *testing.T) {
	p := New()

	html := `<html><head><title>aapl-20230401</title></head><body><p>Content</p></body></html>`
	if got := p.ExtractTitle(html); got != "aapl-20230401" {
		t.Errorf("ExtractTitle() = %q, want %q", got, "aapl-20230401")
	}

	if got := p.ExtractTitle(`<html><body><p>No title here</p></body></html>`); got != "" {
		t.Errorf("ExtractTitle() should return empty for no title, got %q", got)
	}
}

func TestProcessor_Text(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "visible text only",
			content: `<html><head><title>t</title><style>p{}</style></head><body><p>For the quarterly period ended</p><p>March&nbsp;31, 2023</p><script>var x=1</script></body></html>`,
			want:    "For the quarterly period ended March 31, 2023",
		},
		{
			name:    "inline tags split words cleanly",
			content: `<html><body><span>For the fiscal year ended </span><b>September 24,</b> <i>2022</i></body></html>`,
			want:    "For the fiscal year ended September 24, 2022",
		},
		{
			name:    "plain text is normalized",
			content: "CONFORMED PERIOD OF REPORT:\t20230331\n\nFILED AS OF DATE:   20230505",
			want:    "CONFORMED PERIOD OF REPORT: 20230331 FILED AS OF DATE: 20230505",
		},
	}

	p := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Text(tt.content); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"doctype", "<!DOCTYPE html><html></html>", true},
		{"html tag", "  <html><body>x</body></html>", true},
		{"inline xbrl", `<?xml version="1.0"?><html xmlns="http://www.w3.org/1999/xhtml"></html>`, true},
		{"full submission", "<SEC-DOCUMENT>0000320193-23-000064.txt\n<DOCUMENT>\n<TEXT>\n<html>", true},
		{"plain text", "Just some plain text.", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LooksLikeHTML(tt.content); got != tt.want {
				t.Errorf("LooksLikeHTML(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}
