package page

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is an immutable copy of what the browser showed at one tick.
type Snapshot struct {
	Title string
	HTML  string

	doc *goquery.Document
}

// NewSnapshot parses html. Checkbox state must already be reflected in the
// checked attribute; the browser session does that when serializing.
func NewSnapshot(title, html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{Title: title, HTML: html, doc: doc}, nil
}

// Empty reports a page still loading: no title or no markup.
func (s *Snapshot) Empty() bool {
	return strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.HTML) == ""
}

// Contains does a raw substring match on the page source.
func (s *Snapshot) Contains(text string) bool {
	return strings.Contains(s.HTML, text)
}

func (s *Snapshot) Find(sel string) *goquery.Selection {
	return s.doc.Find(sel)
}

func (s *Snapshot) Exists(sel string) bool {
	return s.doc.Find(sel).Length() > 0
}
