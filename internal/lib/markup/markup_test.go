package markup

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain text", in: "just text", want: "just text"},
		{name: "simple tags", in: "<p>Hello <b>world</b></p>", want: "Hello world"},
		{name: "attributes", in: `<a href="/x" title="y">link</a> after`, want: "link after"},
		{name: "entities kept", in: "<p>fish &amp; chips</p>", want: "fish &amp; chips"},
		{name: "encoded markup stays encoded", in: "<p>&lt;script&gt;alert(1)&lt;/script&gt; hello</p>", want: "&lt;script&gt;alert(1)&lt;/script&gt; hello"},
		{name: "bare angle brackets escaped", in: "1 < 2 > 0", want: "1 &lt; 2 &gt; 0"},
		{name: "unterminated tag dropped", in: "text <a href=", want: "text "},
		{name: "quotes untouched", in: `<q>it's "fine"</q>`, want: `it's "fine"`},
		{name: "script dropped", in: "<p>a</p><script>alert('x')</script><p>b</p>", want: "ab"},
		{name: "style dropped", in: "<style>p{color:red}</style>text", want: "text"},
		{name: "self closing", in: "line<br/>break", want: "linebreak"},
		{name: "comment dropped", in: "a<!-- hidden -->b", want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripTags(tt.in))
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", TruncateRunes("héllo", 4))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 5))
	assert.Equal(t, "héllo", TruncateRunes("héllo", 50))
	assert.Equal(t, "", TruncateRunes("héllo", 0))
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{name: "shorter than limit", in: "one two", limit: 10, want: "one two"},
		{name: "exact limit", in: "one two three", limit: 3, want: "one two three"},
		{name: "cut", in: "one two three four", limit: 2, want: "one two" + Ellipsis},
		{name: "whitespace collapsed", in: "  one \n two\tthree ", limit: 5, want: "one two three"},
		{name: "zero limit", in: "one two", limit: 0, want: Ellipsis},
		{name: "empty", in: "", limit: 3, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateWords(tt.in, tt.limit))
		})
	}
}

func TestTruncateWords_NeverExceedsLimit(t *testing.T) {
	for i := 0; i < 50; i++ {
		content := "<div>" + gofakeit.Paragraph(2, 4, 12, "</p><p>") + "</div>"
		limit := gofakeit.Number(1, 20)

		got := TruncateWords(StripTags(content), limit)
		words := strings.Fields(strings.TrimSuffix(got, Ellipsis))

		assert.LessOrEqual(t, len(words), limit)
		assert.NotContains(t, got, "<")
		assert.NotContains(t, got, ">")
	}
}

func TestCapFirst(t *testing.T) {
	assert.Equal(t, "Hello world", CapFirst("hello world"))
	assert.Equal(t, "Élan", CapFirst("élan"))
	assert.Equal(t, "", CapFirst(""))
	assert.Equal(t, "123abc", CapFirst("123abc"))
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello World", want: "hello-world"},
		{in: "  Déjà vu!  ", want: "deja-vu"},
		{in: "multiple   spaces -- and dashes", want: "multiple-spaces-and-dashes"},
		{in: "keep_underscores", want: "keep_underscores"},
		{in: "Ünïcödé Tëxt", want: "unicode-text"},
		{in: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyFilename(t *testing.T) {
	assert.Equal(t, "my-photo.jpg", SlugifyFilename("My Photo.JPG"))
	assert.Equal(t, "cafe-menu.png", SlugifyFilename("/tmp/upload/Café Menu.png"))
	assert.Equal(t, "archivetar.gz", SlugifyFilename("archive.tar.gz"))
	assert.Equal(t, "file.png", SlugifyFilename("???.png"))
}
