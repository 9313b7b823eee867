// Package markup holds the text helpers shared by the content store and the
// presentation layer: markup stripping, truncation and slug normalisation.
package markup

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis is appended by TruncateWords when text was cut.
const Ellipsis = "…"

// textEscaper keeps decoded text free of tag characters. Quotes are left alone.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// StripTags removes every tag from s. Script and style bodies are dropped.
// The remaining text keeps its entities, so an encoded "&lt;script&gt;"
// never turns back into markup.
func StripTags(s string) string {
	if s == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(s))

	var b bytes.Buffer
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is the result
			return b.String()
		case html.StartTagToken:
			if isRawText(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawText(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				textEscaper.WriteString(&b, string(z.Text()))
			}
		}
	}
}

func isRawText(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	a := atom.Lookup(name)
	return a == atom.Script || a == atom.Style
}

// TruncateRunes cuts s to at most n runes.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}

	return s
}

// TruncateWords keeps at most limit whitespace-separated words of s and
// appends Ellipsis when anything was dropped.
func TruncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if limit < 0 {
		limit = 0
	}
	if len(words) <= limit {
		return strings.Join(words, " ")
	}

	return strings.Join(words[:limit], " ") + Ellipsis
}

// CapFirst upper-cases the first rune of s.
func CapFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}

	return string(unicode.ToUpper(r)) + s[size:]
}

// Slugify turns s into a lower-case ASCII slug: accents are folded, anything
// that is not a letter, digit, underscore or hyphen is dropped, and runs of
// whitespace or hyphens collapse into a single hyphen.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(folded) {
		switch {
		case r > unicode.MaxASCII:
			continue
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '-':
			pendingDash = true
		}
	}

	return b.String()
}

// SlugifyFilename slugifies the base name of a file and keeps its extension,
// lower-cased. "My Photo.JPG" becomes "my-photo.jpg".
func SlugifyFilename(name string) string {
	name = filepath.Base(name)
	ext := filepath.Ext(name)
	base := Slugify(strings.TrimSuffix(name, ext))
	if base == "" {
		base = "file"
	}

	return base + strings.ToLower(ext)
}
