package sandbox

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOM is a read-only document loaded from HTML
type DOM struct {
	doc  *goquery.Document
	url  *url.URL
	base *url.URL
}

// ParseDOM parses html as the document found at pageURL
func ParseDOM(pageURL string, html []byte) (*DOM, error) {
	loc, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	if !loc.IsAbs() {
		return nil, fmt.Errorf("page url %q is not absolute", pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	d := &DOM{doc: doc, url: loc, base: loc}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := loc.Parse(strings.TrimSpace(href)); err == nil {
			d.base = b
		}
	}
	return d, nil
}

// URL returns the document location
func (d *DOM) URL() *url.URL { return d.url }

// BaseURI returns the URL relative references resolve against
func (d *DOM) BaseURI() string { return d.base.String() }

// Title returns the text of the first <title>, whitespace collapsed
func (d *DOM) Title() string {
	return strings.Join(strings.Fields(d.doc.Find("title").First().Text()), " ")
}

// Root returns the <html> element
func (d *DOM) Root() *goquery.Selection {
	return d.doc.Find("html").First()
}

// Query returns every element matching selector in document order.
// An invalid selector matches nothing.
func (d *DOM) Query(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Resolve makes ref absolute against the base URI. Unparseable references
// come back unchanged.
func (d *DOM) Resolve(ref string) string {
	u, err := d.base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return u.String()
}
