package client

import (
	"bytes"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Page is a fetched document
type Page struct {
	URL         string // after redirects
	Status      int
	ContentType string // header value, or sniffed from the body when absent
	Body        []byte // content-encoding removed, charset untouched
}

func newPage(finalURL string, status int, contentType string, body []byte) *Page {
	if strings.TrimSpace(contentType) == "" {
		contentType = mimetype.Detect(body).String()
	}
	return &Page{URL: finalURL, Status: status, ContentType: contentType, Body: body}
}

// IsHTML reports whether the content type names an HTML document
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(p.ContentType)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml")
}

// UTF8 returns the body converted to UTF-8
func (p *Page) UTF8() []byte {
	return ToUTF8(p.Body, p.ContentType)
}

// DetectCharset guesses the charset of data from its bytes alone
func DetectCharset(data []byte) string {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

// ToUTF8 converts an HTML body to UTF-8. A BOM, the Content-Type charset or
// a <meta charset> decide when present; otherwise the bytes are sniffed.
func ToUTF8(body []byte, contentType string) []byte {
	if len(body) == 0 {
		return body
	}

	_, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain {
		name = DetectCharset(body)
	}
	if name == "utf-8" || name == "ascii" {
		return body
	}

	reader, err := charset.NewReaderLabel(name, bytes.NewReader(body))
	if err != nil {
		return body
	}
	converted, err := io.ReadAll(reader)
	if err != nil {
		return body
	}
	return converted
}
