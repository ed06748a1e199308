package urlnorm

import (
	"net/url"
	"strings"
)

// Characters kept literal during re-encoding, per component, in addition
// to the unreserved set [A-Za-z0-9-_.~]. The path list matches the
// punctuation the catalog site serves unencoded, so a URL the site
// already links in canonical form passes through unchanged.
const (
	pathSafe  = "/()!.,;:@-_"
	querySafe = "=&"
)

const upperhex = "0123456789ABCDEF"

// Normalize resolves href against base and rewrites the path, query, and
// fragment into canonical form: percent-decode, then re-encode with the
// component's allow-list. Applying Normalize to its own output returns
// the same string. Hrefs that net/url cannot parse even after escape
// repair are canonicalized without base resolution rather than rejected.
// A nil base skips resolution.
//
// Design decision: we decode before re-encoding rather than escaping
// as-is because:
//  1. Raw, partially encoded, and fully encoded spellings of one target
//     must collapse to a single URL for deduplication
//  2. Double-escaping an already-encoded href would change its meaning
//  3. A fixed allow-list gives a stable canonical form independent of
//     which spelling was seen first
func Normalize(href string, base *url.URL) string {
	u, err := url.Parse(escapeForParse(href))
	if err != nil {
		return canonicalize(href)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	var b strings.Builder
	b.Grow(len(href) + 16)
	if u.Scheme != "" {
		b.WriteString(u.Scheme)
		b.WriteByte(':')
	}
	if u.Opaque != "" {
		// Non-hierarchical forms such as mailto:user@host.
		b.WriteString(EncodePath(Decode(u.Opaque)))
	} else {
		if u.Host != "" || u.User != nil {
			b.WriteString("//")
			if u.User != nil {
				b.WriteString(u.User.String())
				b.WriteByte('@')
			}
			b.WriteString(u.Host)
		}
		b.WriteString(EncodePath(Decode(u.EscapedPath())))
	}
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(EncodeQuery(DecodeQuery(u.RawQuery)))
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(EncodeFragment(Decode(u.EscapedFragment())))
	}
	return b.String()
}

// canonicalize rewrites the components of an href in place, without base
// resolution. net/url rejects a few authority shapes (unterminated IPv6
// brackets, non-numeric ports) that escape repair cannot fix; the
// authority passes through untouched so repeated normalization of such
// input is still stable.
func canonicalize(href string) string {
	rest, frag, _ := strings.Cut(href, "#")
	rest, query, _ := strings.Cut(rest, "?")
	authority, path := splitAuthority(rest)

	var b strings.Builder
	b.Grow(len(href) + 16)
	b.WriteString(authority)
	b.WriteString(EncodePath(Decode(path)))
	if query != "" {
		b.WriteByte('?')
		b.WriteString(EncodeQuery(DecodeQuery(query)))
	}
	if frag != "" {
		b.WriteByte('#')
		b.WriteString(EncodeFragment(Decode(frag)))
	}
	return b.String()
}

// splitAuthority splits a leading "scheme://host" or "//host" prefix off
// s and returns it with the remainder. The query and fragment must
// already be removed.
func splitAuthority(s string) (authority, rest string) {
	var body string
	switch {
	case strings.HasPrefix(s, "//"):
		body = s[2:]
	default:
		i := strings.Index(s, "://")
		if i < 0 || !validScheme(s[:i]) {
			return "", s
		}
		body = s[i+3:]
	}
	if i := strings.IndexByte(body, '/'); i >= 0 {
		return s[:len(s)-len(body)+i], body[i:]
	}
	return s, ""
}

// validScheme reports whether s matches URL scheme syntax: a letter
// followed by letters, digits, "+", "-", or ".".
func validScheme(s string) bool {
	if s == "" || !isAlpha(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && !isDigit(c) && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// escapeForParse repairs href just enough for net/url.Parse to accept
// it: "%" bytes that do not start a valid escape become "%25" and
// control bytes are percent-encoded. Valid escapes and every other byte
// pass through unchanged, so the later decode step still sees the
// original escape semantics of the href.
func escapeForParse(href string) string {
	var b strings.Builder
	b.Grow(len(href) + 8)
	for i := 0; i < len(href); i++ {
		c := href[i]
		switch {
		case c == '%':
			if i+2 < len(href) && isHex(href[i+1]) && isHex(href[i+2]) {
				b.WriteByte(c)
			} else {
				b.WriteString("%25")
			}
		case c < 0x20 || c == 0x7F:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0F])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Decode percent-decodes s, leaving invalid escape sequences literal so
// the transform never fails. "+" is not treated specially; that rule
// belongs to query components only.
func Decode(s string) string {
	return decode(s, false)
}

// DecodeQuery percent-decodes a query component, additionally decoding
// "+" to a space.
func DecodeQuery(s string) string {
	return decode(s, true)
}

func decode(s string, plusIsSpace bool) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		case c == '+' && plusIsSpace:
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// EncodePath percent-encodes every byte of s outside the path
// allow-list, with uppercase hex digits. Bytes above 0x7F are encoded
// individually, so a multi-byte rune becomes one escape per byte.
func EncodePath(s string) string {
	return encode(s, pathSafe, false)
}

// EncodeQuery percent-encodes a query component, keeping "=" and "&"
// literal and writing spaces as "+".
func EncodeQuery(s string) string {
	return encode(s, querySafe, true)
}

// EncodeFragment keeps only unreserved characters literal.
func EncodeFragment(s string) string {
	return encode(s, "", false)
}

func encode(s, safe string, spaceIsPlus bool) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c) || strings.IndexByte(safe, c) >= 0:
			b.WriteByte(c)
		case c == ' ' && spaceIsPlus:
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0F])
		}
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '-' || c == '_' || c == '.' || c == '~'
}

func isAlpha(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHex(c byte) bool {
	return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case isDigit(c):
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
