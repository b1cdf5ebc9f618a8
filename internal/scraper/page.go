package scraper

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageState is what a timeline snapshot shows
type PageState int

const (
	PageLoading PageState = iota
	PageLoaded
	PageEmpty
	PageNotFound
	PageSuspended
	PageProtected
	PageRateLimited
)

func (s PageState) String() string {
	switch s {
	case PageLoaded:
		return "loaded"
	case PageEmpty:
		return "empty"
	case PageNotFound:
		return "not-found"
	case PageSuspended:
		return "suspended"
	case PageProtected:
		return "protected"
	case PageRateLimited:
		return "rate-limited"
	default:
		return "loading"
	}
}

// Terminal reports whether the state ends processing of the account
func (s PageState) Terminal() bool {
	return s == PageNotFound || s == PageSuspended || s == PageProtected
}

var (
	notFoundRE  = regexp.MustCompile(`(?i)this account doesn['’]t exist`)
	suspendedRE = regexp.MustCompile(`(?i)account suspended`)
	protectedRE = regexp.MustCompile(`(?i)(these )?posts are protected`)
	rateLimitRE = regexp.MustCompile(`(?i)rate limit exceeded|too many requests|something went wrong\. try reloading`)
	emptyRE     = regexp.MustCompile(`(?i)hasn['’]t posted`)
)

// ClassifyPage decides what an account timeline snapshot shows. status is
// the HTTP status of the main document, 0 when unknown. Markers are only
// searched outside post containers and the profile header so post and bio
// text cannot trigger them. Once posts are on the page only the rate-limit
// banner can override PageLoaded.
func ClassifyPage(doc *goquery.Document, status int) PageState {
	if status == http.StatusTooManyRequests {
		return PageRateLimited
	}

	chrome := doc.Find("body").Clone()
	chrome.Find("article").Remove()
	locked := chrome.Find(ProfileLock).Length() > 0
	chrome.Find(profileText).Remove()
	text := strings.Join(strings.Fields(chrome.Text()), " ")
	rateLimited := rateLimitRE.MatchString(text) || chrome.Find(ErrorDetail).Length() > 0

	if Containers(doc).Length() > 0 {
		if rateLimited {
			return PageRateLimited
		}
		return PageLoaded
	}

	switch {
	case notFoundRE.MatchString(text):
		return PageNotFound
	case suspendedRE.MatchString(text):
		return PageSuspended
	case protectedRE.MatchString(text), locked:
		return PageProtected
	case rateLimited:
		return PageRateLimited
	case emptyRE.MatchString(text), chrome.Find(EmptyState).Length() > 0:
		return PageEmpty
	}
	return PageLoading
}
