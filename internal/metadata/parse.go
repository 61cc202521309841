package metadata

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/SilexsecureTeam/defcomm-browser/internal/providers/http/client"
	"github.com/antchfx/htmlquery"
)

const descriptionSelector = "meta[name='description'], meta[property='og:description'], meta[name='twitter:description']"

var (
	iconXPath = "//link[contains(@rel, 'icon')][@href]"
	htmlXPath = "//html"
)

// Parse extracts a record from an HTML body served at finalURL. The body is
// parsed as HTML whatever its content type says; contentType only informs
// charset detection.
func Parse(finalURL string, body []byte, contentType string) (Record, error) {
	rec := Empty(finalURL)

	root, err := htmlquery.Parse(bytes.NewReader(client.ToUTF8(body, contentType)))
	if err != nil {
		return rec, fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	base := baseURL(finalURL, doc)

	rec.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find(descriptionSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content, ok := s.Attr("content")
		if !ok {
			return true
		}
		rec.Description = strings.TrimSpace(content)
		return false
	})

	if href, ok := doc.Find("link[rel='canonical']").First().Attr("href"); ok {
		rec.Canonical = resolve(base, href)
	}

	for _, n := range htmlquery.Find(root, iconXPath) {
		rec.Icons = append(rec.Icons, resolve(base, htmlquery.SelectAttr(n, "href")))
	}
	if len(rec.Icons) > 0 {
		rec.Icon = rec.Icons[0]
	}

	if theme, ok := doc.Find("meta[name='theme-color']").First().Attr("content"); ok {
		rec.ThemeColor = strings.TrimSpace(theme)
	}

	if n := htmlquery.FindOne(root, htmlXPath); n != nil {
		rec.Lang = strings.TrimSpace(htmlquery.SelectAttr(n, "lang"))
	}

	return rec, nil
}

// baseURL honours <base href> when it resolves
func baseURL(pageURL string, doc *goquery.Document) *url.URL {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := page.Parse(strings.TrimSpace(href)); err == nil {
			return b
		}
	}
	return page
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" {
		return ref
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ref
	}
	return u.String()
}
