package processor

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// Processor turns filing HTML into plain text and Markdown.
type Processor struct{}

// New creates a new Processor.
func New() *Processor {
	return &Processor{}
}

// Convert transforms HTML content into Markdown.
func (p *Processor) Convert(htmlContent string) (string, error) {
	if htmlContent == "" {
		return "", nil
	}

	markdown, err := htmltomarkdown.ConvertString(htmlContent)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(markdown), nil
}

// ExtractTitle extracts the <title> content from HTML.
func (p *Processor) ExtractTitle(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var title string
	var findTitle func(*html.Node)
	findTitle = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			if n.FirstChild != nil {
				title = n.FirstChild.Data
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findTitle(c)
		}
	}
	findTitle(doc)

	return strings.TrimSpace(title)
}

// Text returns the visible text of an HTML document with whitespace
// collapsed to single spaces. Script, style and head content is dropped.
// Content that does not look like HTML is only whitespace-normalized.
func (p *Processor) Text(content string) string {
	if !LooksLikeHTML(content) {
		return collapse(content)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return collapse(content)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "head", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapse(b.String())
}

// LooksLikeHTML reports whether content appears to be an HTML document or
// an EDGAR submission wrapping one.
func LooksLikeHTML(content string) bool {
	lower := strings.ToLower(strings.TrimSpace(content))
	if strings.HasPrefix(lower, "<!doctype") ||
		strings.HasPrefix(lower, "<html") ||
		strings.HasPrefix(lower, "<head") ||
		strings.HasPrefix(lower, "<body") ||
		strings.HasPrefix(lower, "<?xml") {
		return true
	}
	// full-submission.txt: SGML header followed by embedded documents
	return strings.Contains(lower, "<html")
}

// collapse folds runs of whitespace, non-breaking spaces included, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
