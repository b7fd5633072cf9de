package probes

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMeta is the metadata the html runner extracts from a page, preferring
// OpenGraph tags.
type PageMeta struct {
	Title       string
	Description string
	ImageURL    string
}

// UnmarshalHTML fills m from doc.
func (m *PageMeta) UnmarshalHTML(doc *goquery.Document) error {
	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	m.Title = firstNonEmpty(
		extract(`meta[property="og:title"]`),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	m.Description = firstNonEmpty(
		extract(`meta[property="og:description"]`),
		extract(`meta[name="description"]`),
	)
	m.ImageURL = extract(`meta[property="og:image"]`)
	return nil
}

// Summary returns the non-empty fields keyed for an outcome summary.
func (m PageMeta) Summary() map[string]string {
	out := make(map[string]string, 3)
	if m.Title != "" {
		out["title"] = m.Title
	}
	if m.Description != "" {
		out["description"] = m.Description
	}
	if m.ImageURL != "" {
		out["image_url"] = m.ImageURL
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
