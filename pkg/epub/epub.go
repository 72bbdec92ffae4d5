// Package epub reads the text and metadata of EPUB archives.
package epub

import (
	"archive/zip"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shishobooks/bookmeta/pkg/htmlutil"
)

const containerPath = "META-INF/container.xml"

// Book is everything Parse reads out of one archive.
type Book struct {
	Title   string
	Authors []string
	Text    string
}

// Author joins the book's authors the way they are stored in a BookRecord.
func (b *Book) Author() string {
	return strings.Join(b.Authors, ", ")
}

// Parser reads EPUB archives from disk. It holds no state and is safe for
// concurrent use.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseContent returns the readable text of every spine document, in reading
// order.
func (p *Parser) ParseContent(path string) (string, error) {
	book, err := parse(path, true)
	if err != nil {
		return "", err
	}
	return book.Text, nil
}

// ParseAuthor returns the book's authors joined with ", ", or "" when the
// package document names none.
func (p *Parser) ParseAuthor(path string) (string, error) {
	book, err := parse(path, false)
	if err != nil {
		return "", err
	}
	return book.Author(), nil
}

// ParseTitle returns the title from the package document, or "" when it has
// none.
func (p *Parser) ParseTitle(path string) (string, error) {
	book, err := parse(path, false)
	if err != nil {
		return "", err
	}
	return book.Title, nil
}

// ParseBook returns the text, authors and title of the archive, opening it
// once.
func (p *Parser) ParseBook(path string) (text, author, title string, err error) {
	book, err := parse(path, true)
	if err != nil {
		return "", "", "", err
	}
	return book.Text, book.Author(), book.Title, nil
}

// Parse reads metadata and text in a single pass over the archive.
func Parse(path string) (*Book, error) {
	return parse(path, true)
}

func parse(archivePath string, withText bool) (*Book, error) {
	zipReader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer zipReader.Close()

	files := make(map[string]*zip.File, len(zipReader.File))
	for _, file := range zipReader.File {
		files[file.Name] = file
	}

	opfPath, err := findOPF(zipReader.File, files)
	if err != nil {
		return nil, err
	}

	r, err := files[opfPath].Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	opf, err := ParseOPF(opfPath, r)
	r.Close()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	book := &Book{
		Title:   opf.Title,
		Authors: opf.Authors,
	}
	if !withText {
		return book, nil
	}

	documents := opf.Spine
	if len(documents) == 0 {
		documents = htmlDocuments(zipReader.File)
	}

	parts := make([]string, 0, len(documents))
	for _, name := range documents {
		file, ok := files[name]
		if !ok {
			// Spine entries pointing outside the archive carry no text.
			continue
		}
		text, err := readText(file)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", name)
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	book.Text = strings.Join(parts, "\n")

	return book, nil
}

// findOPF locates the package document through the container, falling back
// to the first .opf entry for archives without a usable container.
func findOPF(entries []*zip.File, files map[string]*zip.File) (string, error) {
	if container, ok := files[containerPath]; ok {
		r, err := container.Open()
		if err != nil {
			return "", errors.WithStack(err)
		}
		fullPath, err := ParseContainer(r)
		r.Close()
		if err == nil {
			if _, ok := files[fullPath]; ok {
				return fullPath, nil
			}
		}
	}

	for _, file := range entries {
		if filepath.Ext(file.Name) == ".opf" {
			return file.Name, nil
		}
	}
	return "", errors.New("no opf file found")
}

func htmlDocuments(entries []*zip.File) []string {
	names := []string{}
	for _, file := range entries {
		switch strings.ToLower(path.Ext(file.Name)) {
		case ".xhtml", ".html", ".htm":
			names = append(names, file.Name)
		}
	}
	sort.Strings(names)
	return names
}

func readText(file *zip.File) (string, error) {
	r, err := file.Open()
	if err != nil {
		return "", errors.WithStack(err)
	}
	defer r.Close()

	text, err := htmlutil.ExtractText(r)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return text, nil
}
