package epub

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOPF_TitleAndAuthors(t *testing.T) {
	t.Parallel()
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Good Omens</dc:title>
    <dc:creator opf:role="aut">Terry Pratchett</dc:creator>
    <dc:creator opf:role="aut">Neil Gaiman</dc:creator>
    <dc:creator opf:role="ill">Someone Else</dc:creator>
  </metadata>
</package>`

	opf, err := ParseOPF("content.opf", strings.NewReader(opfXML))
	require.NoError(t, err)

	assert.Equal(t, "Good Omens", opf.Title)
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, opf.Authors)
}

func TestParseOPF_SingleCreatorWithoutRole(t *testing.T) {
	t.Parallel()
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Simple Book Title</dc:title>
    <dc:creator>Ursula K. Le Guin</dc:creator>
  </metadata>
</package>`

	opf, err := ParseOPF("content.opf", strings.NewReader(opfXML))
	require.NoError(t, err)

	assert.Equal(t, []string{"Ursula K. Le Guin"}, opf.Authors)
}

func TestParseOPF_RefinedRoleAndMainTitle(t *testing.T) {
	t.Parallel()
	// EPUB3 style: role and title type attached through refines
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title id="title-sub">Book One of the Stormlight Archive</dc:title>
    <dc:title id="title-main">The Way of Kings</dc:title>
    <meta refines="#title-main" property="title-type">main</meta>
    <meta refines="#title-sub" property="title-type">subtitle</meta>
    <dc:creator id="c1">Brandon Sanderson</dc:creator>
    <dc:creator id="c2">Michael Whelan</dc:creator>
    <meta refines="#c1" property="role">aut</meta>
    <meta refines="#c2" property="role">ill</meta>
  </metadata>
</package>`

	opf, err := ParseOPF("content.opf", strings.NewReader(opfXML))
	require.NoError(t, err)

	assert.Equal(t, "The Way of Kings", opf.Title)
	assert.Equal(t, []string{"Brandon Sanderson"}, opf.Authors)
}

func TestParseOPF_NoMetadata(t *testing.T) {
	t.Parallel()
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"></metadata>
</package>`

	opf, err := ParseOPF("content.opf", strings.NewReader(opfXML))
	require.NoError(t, err)

	assert.Empty(t, opf.Title)
	assert.Empty(t, opf.Authors)
	assert.Empty(t, opf.Spine)
}

func TestParseOPF_SpineResolvedAgainstOPFDirectory(t *testing.T) {
	t.Parallel()
	opfXML := `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>T</dc:title></metadata>
  <manifest>
    <item id="c2" href="text/chapter%202.xhtml" media-type="application/xhtml+xml"/>
    <item id="c1" href="text/chapter1.xhtml#start" media-type="application/xhtml+xml"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="c1"/>
    <itemref idref="c2"/>
    <itemref idref="missing"/>
  </spine>
</package>`

	opf, err := ParseOPF("OEBPS/content.opf", strings.NewReader(opfXML))
	require.NoError(t, err)

	assert.Equal(t, []string{"OEBPS/text/chapter1.xhtml", "OEBPS/text/chapter 2.xhtml"}, opf.Spine)
}

func TestParseOPF_InvalidXML(t *testing.T) {
	t.Parallel()

	_, err := ParseOPF("content.opf", strings.NewReader("<package><metadata>"))
	require.Error(t, err)
}

func TestParseContainer(t *testing.T) {
	t.Parallel()
	containerXML := `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OPS/package.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

	fullPath, err := ParseContainer(strings.NewReader(containerXML))
	require.NoError(t, err)
	assert.Equal(t, "OPS/package.opf", fullPath)

	_, err = ParseContainer(strings.NewReader(`<container><rootfiles></rootfiles></container>`))
	require.Error(t, err)
}
