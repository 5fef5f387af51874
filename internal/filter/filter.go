// Package filter reduces archived URLs to the distinct, parameterized ones
// worth handing to an injection scanner.
package filter

import (
	"path"
	"strings"
)

// DefaultStaticExtensions are path suffixes that never reach a database
// through their query string
var DefaultStaticExtensions = []string{
	"js", "css", "map",
	"png", "jpg", "jpeg", "gif", "svg", "webp", "ico", "bmp", "tif", "tiff",
	"woff", "woff2", "ttf", "eot", "otf",
	"mp4", "mp3", "wav", "avi", "mov", "mkv", "webm",
	"zip", "rar", "7z", "gz", "tar", "pdf",
}

// DefaultTrackingParams are analytics parameters that carry no application input
var DefaultTrackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "msclkid", "_ga", "_gl", "mc_cid", "mc_eid",
}

// Options configures Clean
type Options struct {
	// SkipStatic drops URLs whose path ends in a static asset extension
	SkipStatic       bool
	StaticExtensions []string
	// SkipTrackingOnly drops URLs whose every parameter is a tracking parameter
	SkipTrackingOnly bool
	TrackingParams   []string
}

// DefaultOptions returns the options used by the command-line tool
func DefaultOptions() Options {
	return Options{
		SkipStatic:       true,
		StaticExtensions: DefaultStaticExtensions,
		SkipTrackingOnly: true,
		TrackingParams:   DefaultTrackingParams,
	}
}

// Filter holds the lookup tables built from Options
type Filter struct {
	opts     Options
	static   map[string]bool
	tracking map[string]bool
}

// New creates a Filter
func New(opts Options) *Filter {
	f := &Filter{
		opts:     opts,
		static:   make(map[string]bool, len(opts.StaticExtensions)),
		tracking: make(map[string]bool, len(opts.TrackingParams)),
	}
	for _, ext := range opts.StaticExtensions {
		f.static[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	for _, p := range opts.TrackingParams {
		f.tracking[strings.ToLower(p)] = true
	}
	return f
}

// Clean returns the distinct parameterized URLs of raw, fragments removed,
// in first-seen order. Every returned URL is an element of raw minus its
// fragment.
func (f *Filter) Clean(raw []string) []string {
	cleaned := make([]string, 0)
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		u, ok := f.Accept(r)
		if !ok {
			continue
		}
		key := DedupKey(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, u)
	}

	return cleaned
}

// Accept reports whether raw is a scan candidate and returns it with the
// fragment stripped. The decision is made on the raw text, so URLs that
// net/url refuses (bad escapes in the path) are still judged by their query.
func (f *Filter) Accept(raw string) (string, bool) {
	u := StripFragment(strings.TrimSpace(raw))
	host, p, query, ok := splitURL(u)
	if !ok || host == "" {
		return "", false
	}

	params := queryKeys(query)
	if len(params) == 0 {
		return "", false
	}

	if f.opts.SkipStatic && f.isStatic(p) {
		return "", false
	}

	if f.opts.SkipTrackingOnly && f.allTracking(params) {
		return "", false
	}

	return u, true
}

// splitURL splits an absolute URL into host, path and raw query without
// decoding anything. ok is false when there is no scheme separator.
func splitURL(u string) (host, p, query string, ok bool) {
	_, rest, found := strings.Cut(u, "://")
	if !found {
		return "", "", "", false
	}
	rest, query, _ = strings.Cut(rest, "?")
	host, p, _ = strings.Cut(rest, "/")
	if i := strings.LastIndexByte(host, '@'); i >= 0 {
		host = host[i+1:]
	}
	return host, "/" + p, query, true
}

func (f *Filter) isStatic(p string) bool {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	return ext != "" && f.static[strings.ToLower(ext)]
}

func (f *Filter) allTracking(keys []string) bool {
	for _, k := range keys {
		if !f.tracking[strings.ToLower(k)] {
			return false
		}
	}
	return true
}

// HasQuery reports whether raw carries at least one key=value parameter
func HasQuery(raw string) bool {
	_, query, _ := strings.Cut(StripFragment(strings.TrimSpace(raw)), "?")
	return len(queryKeys(query)) > 0
}

// queryKeys returns the keys of every key=value pair in rawQuery.
// Bare flags ("?debug") and empty keys ("?=1") do not count.
func queryKeys(rawQuery string) []string {
	var keys []string
	for _, pair := range strings.FieldsFunc(rawQuery, func(r rune) bool { return r == '&' || r == ';' }) {
		k, _, found := strings.Cut(pair, "=")
		if !found || k == "" {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

// StripFragment removes everything from the first '#'
func StripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// DedupKey is the comparison form of a URL: lowercased, scheme dropped,
// fragment dropped, and a trailing slash on the path ignored
func DedupKey(raw string) string {
	k := strings.ToLower(StripFragment(strings.TrimSpace(raw)))
	if i := strings.Index(k, "://"); i >= 0 {
		k = k[i+3:]
	}

	pathPart, query, hasQuery := strings.Cut(k, "?")
	pathPart = strings.TrimRight(pathPart, "/")
	if hasQuery {
		return pathPart + "?" + query
	}
	return pathPart
}
