// Package textnorm cleans raw email bodies and canonicalizes sender and subject fields.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxBody is the body length used by the inbox pipeline.
const DefaultMaxBody = 1000

const truncationMarker = "..."

// subjectPrefixes are each checked once, in order.
var subjectPrefixes = []string{"re:", "fwd:", "fw:", "re [", "fwd ["}

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)\s*>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

// CleanBody converts an HTML or plain-text body to collapsed readable text.
// Script and style content is dropped, entities are unescaped and the result is cut
// to maxLen characters with a trailing marker. maxLen <= 0 disables truncation.
func CleanBody(raw string, maxLen int) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	text, err := htmlText(raw)
	if err != nil {
		return plainText(raw, maxLen)
	}
	return truncate(collapse(html.UnescapeString(text)), maxLen)
}

// plainText is the degraded path for markup the parser rejects. It strips tags with
// a regex and cuts without a marker.
func plainText(raw string, maxLen int) string {
	text := collapse(html.UnescapeString(stripTags(raw)))
	if maxLen <= 0 {
		return text
	}
	return Truncate(text, maxLen)
}

func htmlText(raw string) (string, error) {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return "", err
	}

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(parts, " "), nil
}

// stripTags is the regex path used when the markup cannot be parsed.
func stripTags(raw string) string {
	s := scriptStyleRe.ReplaceAllString(raw, " ")
	return tagRe.ReplaceAllString(s, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + truncationMarker
}

// Truncate cuts s to n characters without a marker.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n < 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

// ExtractAddress returns the bracketed address of "Name <addr>", or the trimmed input.
func ExtractAddress(sender string) string {
	start := strings.Index(sender, "<")
	if start < 0 || !strings.Contains(sender, ">") {
		return strings.TrimSpace(sender)
	}
	rest := sender[start+1:]
	if end := strings.Index(rest, ">"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// NormalizeSubject lowercases and trims subject, then walks subjectPrefixes once,
// stripping each one that leads the remaining text. A repeated prefix is stripped
// only once: "Re: Re: Foo" becomes "re: foo" while "Re: Fwd: Foo" becomes "foo".
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(strings.ToLower(subject))
	for _, p := range subjectPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(s[len(p):])
		}
	}
	return s
}

// Domain returns the lowercased part of an address after '@', or "" when there is none.
// Display-name forms are accepted.
func Domain(addr string) string {
	a := ExtractAddress(addr)
	i := strings.LastIndex(a, "@")
	if i < 0 || i == len(a)-1 {
		return ""
	}
	return strings.ToLower(a[i+1:])
}

// Snippet unescapes a provider snippet ("&#39;" etc.) and collapses whitespace.
func Snippet(s string) string {
	return collapse(html.UnescapeString(s))
}
