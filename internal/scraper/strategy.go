package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy extracts one field from a post container. Implementations are
// tried in order by a Chain; the first that reports ok wins.
type Strategy interface {
	Name() string
	Extract(post *goquery.Selection) (string, bool)
}

// PrimarySelector reads the text, or Attr when set, of the first element
// matching Selector. It targets the current DOM layout. Matches nested in an
// element matching Outside, below the container, are skipped.
type PrimarySelector struct {
	Selector string
	Attr     string
	Outside  string
}

func (s PrimarySelector) Name() string { return "primary" }

func (s PrimarySelector) Extract(post *goquery.Selection) (string, bool) {
	return lookup(post, s.Selector, s.Attr, s.Outside)
}

// AlternateSelector addresses a known DOM variant of the same field
type AlternateSelector struct {
	Selector string
	Attr     string
	Outside  string
}

func (s AlternateSelector) Name() string { return "alternate" }

func (s AlternateSelector) Extract(post *goquery.Selection) (string, bool) {
	return lookup(post, s.Selector, s.Attr, s.Outside)
}

// HeuristicPattern matches Pattern against the text or Attr of every element
// matching Selector (the container itself when Selector is empty) and
// returns the first submatch, or the whole match without groups.
type HeuristicPattern struct {
	Selector string
	Attr     string
	Pattern  *regexp.Regexp
}

func (s HeuristicPattern) Name() string { return "heuristic" }

func (s HeuristicPattern) Extract(post *goquery.Selection) (string, bool) {
	candidates := post
	if s.Selector != "" {
		candidates = post.Find(s.Selector)
	}

	var out string
	var found bool
	candidates.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		m := s.Pattern.FindStringSubmatch(value(el, s.Attr))
		if m == nil {
			return true
		}
		out = m[0]
		if len(m) > 1 {
			out = m[1]
		}
		out = strings.TrimSpace(out)
		found = out != ""
		return !found
	})
	return out, found
}

// Chain is an ordered fallback list for one field
type Chain []Strategy

// Resolve runs the strategies in order and reports the winning one
func (c Chain) Resolve(post *goquery.Selection) (string, string, bool) {
	for _, s := range c {
		if v, ok := s.Extract(post); ok {
			return v, s.Name(), true
		}
	}
	return "", "", false
}

func lookup(post *goquery.Selection, selector, attr, outside string) (string, bool) {
	var out string
	post.Find(selector).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if outside != "" && (el.Is(outside) || el.ParentsUntilSelection(post).Filter(outside).Length() > 0) {
			return true
		}
		out = strings.TrimSpace(value(el, attr))
		return out == ""
	})
	return out, out != ""
}

func value(el *goquery.Selection, attr string) string {
	if attr == "" {
		return el.Text()
	}
	v, _ := el.Attr(attr)
	return v
}
