package archive

import (
	"bytes"
	"fmt"
	"html"

	"github.com/PuerkitoBio/goquery"
)

const (
	styleID     = "filingflow-style"
	headerClass = "custom-header"
)

const stylesheet = `
body { background-color: #f9f9f9; color: #333; font-family: Arial, sans-serif; margin: 20px; }
h1, h2, h3 { color: #4b75c9; font-weight: bold; }
p { line-height: 1.6; }
table { border-collapse: collapse; width: 100%; margin: 15px 0; }
th, td { border: 1px solid #ccc; padding: 8px; }
th { background-color: #ddd; }
.custom-header { background-color: #4b75c9; color: #fff; padding: 10px; text-align: center; margin-bottom: 20px; }
.custom-header h1 { margin: 0; }
`

// Decorate strips images from an HTML document and injects the filing
// stylesheet and a header banner carrying title. Style and header are only
// added when absent, so decorating a decorated document changes nothing but
// serialization.
func Decorate(content []byte, title string) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("img").Remove()

	if doc.Find("style#" + styleID).Length() == 0 {
		doc.Find("head").First().AppendHtml(fmt.Sprintf(`<style id="%s">%s</style>`, styleID, stylesheet))
	}
	if doc.Find("div." + headerClass).Length() == 0 {
		doc.Find("body").First().PrependHtml(fmt.Sprintf(`<div class="%s"><h1>%s</h1></div>`, headerClass, html.EscapeString(title)))
	}

	out, err := doc.Html()
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return []byte(out), nil
}
