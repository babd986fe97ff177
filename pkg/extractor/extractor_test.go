package extractor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFromBdpLinkContainers(t *testing.T) {
	html := `<html><body>
		<div class="bdpLink"><a href="KHTX20250315_000128_V06.gz">file 1</a></div>
		<div class="bdpLink"><a href="KHTX20250315_001204_V06.gz">file 2</a></div>
		<a href="/elsewhere/KHTX20250315_999999_V06.gz">should not appear</a>
	</body></html>`

	links, err := New().Extract(html, "https://www.ncdc.noaa.gov/nexradinv/bdp-download.jsp")
	require.NoError(t, err)

	// Highest-priority rule wins alone; the loose anchor outside the
	// container belongs to lower-priority rules and must not contribute
	assert.Equal(t, []string{
		"https://www.ncdc.noaa.gov/nexradinv/KHTX20250315_000128_V06.gz",
		"https://www.ncdc.noaa.gov/nexradinv/KHTX20250315_001204_V06.gz",
	}, links)
}

func TestExtractFallsBackThroughChain(t *testing.T) {
	// No bdpLink container, no marker extensions in specific rules except
	// the plain-anchor fallback
	html := `<html><body>
		<p><a href="data1.tar.gz">data 1</a></p>
		<p><a href="data2.tar.gz">data 2</a></p>
		<p><a href="ignore.html">readme</a></p>
	</body></html>`

	var matched string
	e := New()
	e.OnRuleMatch = func(rule SelectionRule, count int) {
		matched = rule.Name
	}

	links, err := e.Extract(html, "https://x.test/idx")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://x.test/data1.tar.gz",
		"https://x.test/data2.tar.gz",
	}, links)
	assert.Equal(t, "gzip-extension", matched)
}

func TestExtractFiltersNonDataAnchors(t *testing.T) {
	html := `<html><body><table>
		<tr><td><a href="KHTX20250315_000128_V06.gz">volume</a></td></tr>
		<tr><td><a href="help.html">help</a></td></tr>
		<tr><td><a href="/nexradinv/">back</a></td></tr>
	</table></body></html>`

	links, err := New().Extract(html, "https://www.ncdc.noaa.gov/nexradinv/bdp-download.jsp")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.ncdc.noaa.gov/nexradinv/KHTX20250315_000128_V06.gz",
	}, links)
}

func TestExtractResolvesRelativeHrefs(t *testing.T) {
	html := `<html><body><a href="file.gz">f</a></body></html>`

	links, err := New().Extract(html, "https://example.org/a/index.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.org/a/file.gz"}, links)
}

func TestExtractPassesThroughAbsoluteHrefs(t *testing.T) {
	html := `<html><body>
		<a href="https://archive.test/bulk/KHTX_V06.tar">tar</a>
	</body></html>`

	links, err := New().Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://archive.test/bulk/KHTX_V06.tar"}, links)
}

func TestExtractAcceptsAbsoluteDownloadLinks(t *testing.T) {
	// "download" alone is only trusted on absolute URLs
	html := `<html><body>
		<a href="https://mirror.test/download?id=42">mirror</a>
		<a href="download.html">local download page</a>
	</body></html>`

	links, err := New().Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://mirror.test/download?id=42"}, links)
}

func TestExtractDeduplicatesFirstOccurrenceWins(t *testing.T) {
	html := `<html><body>
		<a href="data1.tar.gz">first</a>
		<a href="data2.tar.gz">second</a>
		<a href="data1.tar.gz">duplicate of first</a>
	</body></html>`

	links, err := New().Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://x.test/data1.tar.gz",
		"https://x.test/data2.tar.gz",
	}, links)
}

func TestExtractNoMatchesReturnsEmptyNotError(t *testing.T) {
	html := `<html><body>
		<a href="about.html">about</a>
		<a href="contact.html">contact</a>
	</body></html>`

	var dumped []Anchor
	e := New()
	e.OnNoMatch = func(anchors []Anchor) {
		dumped = anchors
	}

	links, err := e.Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Empty(t, links)

	// Diagnostics see every anchor even though none survived the filter
	require.Len(t, dumped, 2)
	assert.Equal(t, "about", dumped[0].Text)
	assert.Equal(t, "about.html", dumped[0].Href)
}

func TestExtractEmptyDocument(t *testing.T) {
	links, err := New().Extract("", "https://x.test/idx")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractSkipsAnchorsWithoutHref(t *testing.T) {
	html := `<html><body>
		<a name="top">no href</a>
		<a href="data1.tar.gz">real</a>
	</body></html>`

	links, err := New().Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.test/data1.tar.gz"}, links)
}

func TestExtractSkipsMalformedRule(t *testing.T) {
	rules := []SelectionRule{
		{Name: "broken", Selector: "a[href*="},
		{Name: "anchors", Selector: "a"},
	}

	var matched string
	e := NewWithRules(rules)
	e.OnRuleMatch = func(rule SelectionRule, count int) {
		matched = rule.Name
	}

	html := `<html><body><a href="data.gz">d</a></body></html>`
	links, err := e.Extract(html, "https://x.test/idx")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://x.test/data.gz"}, links)
	assert.Equal(t, "anchors", matched)
}

func TestExtractSkipsUnresolvableHref(t *testing.T) {
	html := `<html><body>
		<a href="://bad .gz href">broken</a>
		<a href="good.gz">good</a>
	</body></html>`

	links, err := New().Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.test/good.gz"}, links)
}

func TestExtractInvalidBaseURL(t *testing.T) {
	html := `<html><body><a href="data.gz">d</a></body></html>`
	_, err := New().Extract(html, "://not-a-url")
	assert.Error(t, err)
}

func TestExtractManyLinksPreservesOrder(t *testing.T) {
	html := "<html><body>"
	var want []string
	for i := 0; i < 25; i++ {
		html += fmt.Sprintf(`<a href="KHTX20250315_%02d_V06.gz">v</a>`, i)
		want = append(want, fmt.Sprintf("https://x.test/KHTX20250315_%02d_V06.gz", i))
	}
	html += "</body></html>"

	links, err := New().Extract(html, "https://x.test/idx")
	require.NoError(t, err)
	assert.Equal(t, want, links)
}
