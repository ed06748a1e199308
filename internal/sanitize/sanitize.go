package sanitize

import (
	"net/url"
	"regexp"
	"strings"

	"midimirror/internal/urlnorm"
)

// DefaultMaxLen is the slug length cap applied by Slugify. It keeps
// joined category/file paths well inside common filesystem limits.
const DefaultMaxLen = 120

// defaultExt is appended when a download URL's basename has no extension.
const defaultExt = ".mid"

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	unsafeRegex     = regexp.MustCompile(`[^a-z0-9\-_.()]+`)
	hyphenRunRegex  = regexp.MustCompile(`-+`)
)

// Slugify converts arbitrary text into a lowercase, hyphenated name that
// is safe as a path segment, capped at DefaultMaxLen. Empty input (or
// input with no representable characters) yields "untitled".
func Slugify(text string) string {
	return SlugifyMax(text, DefaultMaxLen)
}

// SlugifyMax is Slugify with an explicit length cap. A negative maxLen
// disables truncation. The passes run in a fixed order: trim and
// lowercase, whitespace runs to "-", characters outside [a-z0-9-_.()]
// to "-", collapse "-" runs, trim "-", truncate. Truncation happens
// last, so a capped slug may legitimately end in a hyphen.
func SlugifyMax(text string, maxLen int) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = whitespaceRegex.ReplaceAllString(slug, "-")
	slug = unsafeRegex.ReplaceAllString(slug, "-")
	slug = hyphenRunRegex.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if maxLen >= 0 && len(slug) > maxLen {
		// Only ASCII remains after the passes above, so a byte cut
		// cannot split a rune.
		slug = slug[:maxLen]
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}

// FilenameFromURL derives a safe local filename from a download URL:
// the percent-decoded basename of the URL path, with the root slugified
// and the extension lowercased. A missing extension defaults to ".mid";
// a missing basename degrades to "untitled.mid".
func FilenameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.EscapedPath()
	} else {
		p, _, _ = strings.Cut(p, "#")
		p, _, _ = strings.Cut(p, "?")
	}
	base := urlnorm.Decode(p[strings.LastIndexByte(p, '/')+1:])

	root, ext := splitExt(base)
	if ext == "" {
		ext = defaultExt
	}
	return Slugify(root) + strings.ToLower(ext)
}

// splitExt splits name into root and extension. The extension starts at
// the last dot, except that leading dots belong to the root, so a
// dotfile name like ".hidden" has no extension.
func splitExt(name string) (root, ext string) {
	dot := strings.LastIndexByte(name, '.')
	for i := 0; i < dot; i++ {
		if name[i] != '.' {
			return name[:dot], name[dot:]
		}
	}
	return name, ""
}
