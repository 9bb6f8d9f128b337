package streamdown

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// slugger derives heading ids and keeps them unique within one stream.
type slugger struct {
	seen map[string]int
}

func (s *slugger) reset() {
	for k := range s.seen {
		delete(s.seen, k)
	}
}

// slug returns the id for a rendered heading body. Repeated ids get a
// numeric suffix: "intro", "intro-1", "intro-2".
func (s *slugger) slug(body string) string {
	base := slugify(body)
	if s.seen == nil {
		s.seen = make(map[string]int)
	}
	n, ok := s.seen[base]
	s.seen[base] = n + 1
	if !ok {
		return base
	}
	for {
		candidate := base + "-" + strconv.Itoa(n)
		if _, taken := s.seen[candidate]; !taken {
			s.seen[candidate] = 1
			return candidate
		}
		n++
		s.seen[base] = n + 1
	}
}

var lowerCaser = cases.Lower(language.Und)

// slugify lower-cases text, drops markup, diacritics and punctuation, and
// maps each whitespace character to a dash.
func slugify(text string) string {
	plain := stripTags(text)
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), plain)
	if err == nil {
		plain = folded
	}
	plain = lowerCaser.String(strings.TrimSpace(plain))
	var b strings.Builder
	b.Grow(len(plain))
	for _, r := range plain {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('-')
		case r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
