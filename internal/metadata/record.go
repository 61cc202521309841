package metadata

import (
	"github.com/bytedance/sonic"
)

// Record is the page metadata returned to the shell
type Record struct {
	URL         string   `json:"url"`
	Canonical   string   `json:"canonical"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Icons       []string `json:"icons"`
	ThemeColor  string   `json:"theme_color"`
	Lang        string   `json:"lang"`
}

// Empty returns the record used when neither path produced data
func Empty(pageURL string) Record {
	return Record{URL: pageURL, Icons: []string{}}
}

// JSON encodes r. Encoding failure yields "{}".
func (r Record) JSON() string {
	if r.Icons == nil {
		r.Icons = []string{}
	}
	data, err := sonic.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Decode parses a JSON record, accepting the themeColor spelling as well
func Decode(data string) (Record, error) {
	var raw struct {
		Record
		ThemeColorAlt string `json:"themeColor"`
	}
	if err := sonic.UnmarshalString(data, &raw); err != nil {
		return Record{}, err
	}
	r := raw.Record
	if r.ThemeColor == "" {
		r.ThemeColor = raw.ThemeColorAlt
	}
	if r.Icons == nil {
		r.Icons = []string{}
	}
	return r, nil
}
