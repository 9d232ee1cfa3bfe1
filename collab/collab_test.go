package collab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultTokenizerLowercasesAndSplits(t *testing.T) {
	tok := NewDefaultTokenizer()
	got := tok.Tokenize("Hello, World! Don't stop.")
	require.Equal(t, []string{"hello", "world", "don't", "stop"}, got)
}

func TestDefaultTokenizerNonASCII(t *testing.T) {
	tok := NewDefaultTokenizer()
	got := tok.Tokenize("Café FÖÖ")
	require.Equal(t, []string{"café", "föö"}, got)
}

func TestSnowballStemmerStemsSuffixes(t *testing.T) {
	s := NewSnowballStemmer()
	require.Equal(t, "run", s.Stem("running"))
	require.Equal(t, "happi", s.Stem("happiness"))
}

func TestStaticStopwordsIsStopword(t *testing.T) {
	o := NewStopwords([]string{"the", "a", "an"})
	require.True(t, o.IsStopword("the"))
	require.False(t, o.IsStopword("banana"))
	require.Equal(t, 3, o.Count())
}

func TestLoadStopwordsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stopwords.txt")
	require.NoError(t, os.WriteFile(path, []byte("the\na\n# comment\n\nan\n"), 0o644))

	o, err := LoadStopwords(path)
	require.NoError(t, err)
	require.Equal(t, 3, o.Count())
	require.True(t, o.IsStopword("an"))
}

func TestDefragmentStripsFragment(t *testing.T) {
	got, err := Defragment("https://Example.com/path#section")
	require.NoError(t, err)
	require.NotContains(t, got, "#")
}

func TestResolveOutlinkRelative(t *testing.T) {
	got, err := ResolveOutlink("https://example.com/a/b", "../c")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/c", got)
}

func TestGoqueryExtractorPullsImportantAndOutlinks(t *testing.T) {
	html := `<html><head><title>My Title</title></head><body>
		<h1>Heading</h1>
		<p>Some body text <a href="/a">link a</a></p>
		<a href="https://other.example/b">link b</a>
		<script>ignored()</script>
	</body></html>`

	e := NewGoqueryExtractor()
	extraction, err := e.Extract([]byte(html))
	require.NoError(t, err)
	require.Contains(t, extraction.Text, "Some body text")
	require.NotContains(t, extraction.Text, "ignored()")
	require.Equal(t, []string{"My Title"}, extraction.ImportantFragments["title"])
	require.Equal(t, []string{"Heading"}, extraction.ImportantFragments["h1"])
	require.ElementsMatch(t, []string{"/a", "https://other.example/b"}, extraction.Outlinks)
}

func TestDirectoryPageLoaderDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.html"), []byte("<p>b</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte("<p>a</p>"), 0o644))
	manifest := "b.html\thttps://example.com/b\na.html\thttps://example.com/a\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.txt"), []byte(manifest), 0o644))

	loader, err := NewDirectoryPageLoader(dir, "*")
	require.NoError(t, err)

	p1, ok, err := loader.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/a", p1.URL)

	p2, ok, err := loader.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "https://example.com/b", p2.URL)

	_, ok, err = loader.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDirectoryPageLoaderHonorsRobots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.html"), []byte("<p>s</p>"), 0o644))
	manifest := "secret.html\thttps://example.com/private/secret\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.txt"), []byte(manifest), 0o644))
	robots := "User-agent: *\nDisallow: /private/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "robots.txt"), []byte(robots), 0o644))

	loader, err := NewDirectoryPageLoader(dir, "*")
	require.NoError(t, err)

	_, ok, err := loader.Next()
	require.NoError(t, err)
	require.False(t, ok)
}
