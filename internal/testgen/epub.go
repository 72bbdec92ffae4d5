package testgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// GenerateEPUB creates a valid EPUB file at dir/filename with the given
// options. The archive contains mimetype, container.xml, content.opf and one
// XHTML document per chapter. Returns the full path.
func GenerateEPUB(t *testing.T, dir, filename string, opts EPUBOptions) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for EPUB file: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create EPUB file: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	// mimetype must be first and uncompressed
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		t.Fatalf("failed to create mimetype entry: %v", err)
	}
	if _, err := w.Write([]byte("application/epub+zip")); err != nil {
		t.Fatalf("failed to write mimetype: %v", err)
	}

	if !opts.OmitContainer {
		containerXML := `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
		if err := writeZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
			t.Fatalf("failed to write container.xml: %v", err)
		}
	}

	chapters := opts.Chapters
	if len(chapters) == 0 {
		chapters = []string{"This is a test chapter."}
	}

	if err := writeZipFile(zw, "OEBPS/content.opf", []byte(generateOPF(opts, len(chapters)))); err != nil {
		t.Fatalf("failed to write content.opf: %v", err)
	}

	for i, body := range chapters {
		name := fmt.Sprintf("OEBPS/chapter%d.xhtml", i+1)
		if err := writeZipFile(zw, name, []byte(generateChapter(i+1, body))); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	return path
}

// WriteCorruptEPUB writes a file with the .epub extension that is not a zip
// archive. Returns the full path.
func WriteCorruptEPUB(t *testing.T, dir, filename string) string {
	t.Helper()
	return WriteFile(t, dir, filename, []byte("this is not a zip archive"))
}

func generateOPF(opts EPUBOptions, chapterCount int) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)

	// Title - only include if provided (allows testing filename fallback)
	if opts.Title != "" {
		buf.WriteString(fmt.Sprintf("    <dc:title id=\"title\">%s</dc:title>\n", escapeXML(opts.Title)))
	}
	for i, author := range opts.Authors {
		buf.WriteString(fmt.Sprintf("    <dc:creator id=\"creator%d\" opf:role=\"aut\">%s</dc:creator>\n", i, escapeXML(author)))
	}
	buf.WriteString("    <dc:identifier id=\"bookid\">urn:uuid:test-book-id</dc:identifier>\n")
	buf.WriteString("    <dc:language>en</dc:language>\n")
	buf.WriteString("  </metadata>\n")

	buf.WriteString("  <manifest>\n")
	for i := 1; i <= chapterCount; i++ {
		buf.WriteString(fmt.Sprintf("    <item id=\"chapter%d\" href=\"chapter%d.xhtml\" media-type=\"application/xhtml+xml\"/>\n", i, i))
	}
	buf.WriteString("  </manifest>\n")

	buf.WriteString("  <spine>\n")
	for i := 1; i <= chapterCount; i++ {
		buf.WriteString(fmt.Sprintf("    <itemref idref=\"chapter%d\"/>\n", i))
	}
	buf.WriteString("  </spine>\n")
	buf.WriteString("</package>")

	return buf.String()
}

func generateChapter(n int, body string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>Heading %d</title>
</head>
<body>
  <p>%s</p>
</body>
</html>`, n, escapeXML(body))
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			buf.WriteString("&lt;")
		case '>':
			buf.WriteString("&gt;")
		case '&':
			buf.WriteString("&amp;")
		case '"':
			buf.WriteString("&quot;")
		case '\'':
			buf.WriteString("&apos;")
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
