package catalog

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"midimirror/internal/urlnorm"
)

// CategoryLink is one category ("series") page discovered on the index.
type CategoryLink struct {
	// Name is a human-readable display name derived from the href path
	// segment. The orchestrator later prefers the page's own <h1>.
	Name string

	// URL is the absolute, normalized page URL.
	URL string
}

// FileLink is one downloadable file discovered on a category page.
type FileLink struct {
	// CategoryName is the display name of the category the link was
	// found under.
	CategoryName string

	// Title is the decoded basename of the URL path, for log lines.
	Title string

	// URL is the absolute, normalized download URL. Within one category,
	// FileLinks are unique by URL.
	URL string
}

// Extractor scans catalog markup for category and file links.
//
// Design decision: we parse with golang.org/x/net/html rather than
// matching href attributes by regex because:
//  1. It correctly handles malformed HTML common on hobbyist sites
//  2. Attribute quoting, casing, and entities are handled uniformly
//  3. Heading extraction needs element structure anyway
//
// The selection rules on top of the parse stay as shallow as the
// original pattern matching, so swapping the substrate does not change
// which links are picked.
type Extractor struct {
	// base resolves relative hrefs into absolute URLs.
	base *url.URL

	// prefix is the catalog path prefix category hrefs must start with,
	// for example "/midis".
	prefix string

	// fileRegex matches hrefs whose path ends in one of the target file
	// extensions, optionally followed by a query string.
	fileRegex *regexp.Regexp
}

// NewExtractor creates an Extractor for the catalog rooted at baseURL.
// prefix is the category path prefix (such as "/midis") and extensions
// are the downloadable file extensions (such as ".mid", ".midi").
func NewExtractor(baseURL, prefix string, extensions []string) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if !strings.HasPrefix(prefix, "/") || prefix == "/" {
		return nil, fmt.Errorf("catalog prefix %q must start with / and name a path", prefix)
	}
	if len(extensions) == 0 {
		return nil, fmt.Errorf("at least one file extension is required")
	}

	alts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext == "" {
			return nil, fmt.Errorf("empty file extension")
		}
		alts = append(alts, regexp.QuoteMeta(ext))
	}

	return &Extractor{
		base:      base,
		prefix:    strings.TrimSuffix(prefix, "/"),
		fileRegex: regexp.MustCompile(`(?i)\.(` + strings.Join(alts, "|") + `)(\?|$)`),
	}, nil
}

// Categories returns the category links found on the index page.
// Hrefs are kept when they begin with the catalog prefix plus "/",
// excluding the bare index path and direct file links, deduplicated by
// normalized URL. The result is ordered by sorted raw href so repeated
// runs see categories in the same order regardless of markup order.
func (e *Extractor) Categories(indexHTML string) []CategoryLink {
	hrefs := collectHrefs(indexHTML)

	uniq := make(map[string]bool, len(hrefs))
	sorted := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		if !uniq[href] {
			uniq[href] = true
			sorted = append(sorted, href)
		}
	}
	sort.Strings(sorted)

	seen := make(map[string]bool)
	categories := make([]CategoryLink, 0)
	for _, href := range sorted {
		if !strings.HasPrefix(href, e.prefix+"/") {
			continue
		}
		// Direct file links on the index are not categories.
		if e.fileRegex.MatchString(href) {
			continue
		}
		normalized := urlnorm.Normalize(href, e.base)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		name := strings.TrimSpace(strings.ReplaceAll(urlnorm.Decode(href[len(e.prefix)+1:]), "-", " "))
		if name == "" {
			name = href
		}
		categories = append(categories, CategoryLink{Name: name, URL: normalized})
	}
	return categories
}

// Files returns the file links found on a category page, in first-seen
// order, deduplicated by normalized URL. The first occurrence wins, so
// titles and ordering are reproducible across runs.
func (e *Extractor) Files(categoryHTML, categoryName string) []FileLink {
	seen := make(map[string]bool)
	files := make([]FileLink, 0)
	for _, href := range collectHrefs(categoryHTML) {
		if !e.fileRegex.MatchString(href) {
			continue
		}
		normalized := urlnorm.Normalize(href, e.base)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		files = append(files, FileLink{
			CategoryName: categoryName,
			Title:        titleFromURL(normalized),
			URL:          normalized,
		})
	}
	return files
}

// Heading returns the trimmed text of the page's first <h1> element with
// nested markup stripped, or "" when the page has none. The orchestrator
// uses it as a best-effort replacement for the provisional category name.
func (e *Extractor) Heading(pageHTML string) string {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}

	var h1 *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if h1 != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "h1" {
			h1 = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)
	if h1 == nil {
		return ""
	}

	var text strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(h1)
	return strings.TrimSpace(text.String())
}

// collectHrefs returns every non-empty href attribute in the document,
// in document order, duplicates included.
func collectHrefs(pageHTML string) []string {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil
	}

	hrefs := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if href := getAttr(n, "href"); href != "" {
				hrefs = append(hrefs, href)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return hrefs
}

// titleFromURL returns the decoded basename of a normalized URL's path.
func titleFromURL(normalized string) string {
	p := normalized
	if u, err := url.Parse(normalized); err == nil {
		p = u.EscapedPath()
	}
	return urlnorm.Decode(p[strings.LastIndexByte(p, '/')+1:])
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
