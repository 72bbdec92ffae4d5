package epub

import (
	"encoding/xml"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// OPF is the subset of an EPUB package document used for book metadata.
type OPF struct {
	Title   string
	Authors []string
	// Spine lists the archive paths of the reading-order documents.
	Spine []string
}

type Package struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title []struct {
			Text string `xml:",chardata"`
			ID   string `xml:"id,attr"`
		} `xml:"title"`
		Creator []struct {
			Text   string `xml:",chardata"`
			ID     string `xml:"id,attr"`
			Role   string `xml:"role,attr"`
			FileAs string `xml:"file-as,attr"`
		} `xml:"creator"`
		Meta []struct {
			Text     string `xml:",chardata"`
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Refines  string `xml:"refines,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemref []struct {
			Idref  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// Container is META-INF/container.xml, which names the package document.
type Container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

func ParseContainer(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.WithStack(err)
	}

	c := &Container{}
	if err := xml.Unmarshal(b, c); err != nil {
		return "", errors.WithStack(err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if rf.FullPath != "" && (rf.MediaType == "" || rf.MediaType == "application/oebps-package+xml") {
			return rf.FullPath, nil
		}
	}
	return "", errors.New("container has no package rootfile")
}

func ParseOPF(filename string, r io.Reader) (*OPF, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	pkg := &Package{}
	err = xml.Unmarshal(b, pkg)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// All hrefs are relative to the location of the OPF file inside the archive.
	basePath := path.Dir(filename)
	if basePath == "." {
		basePath = ""
	} else {
		basePath += "/"
	}

	// EPUB 3 attaches roles and title types through <meta refines="#id">.
	metaProperties := map[string]map[string]string{}
	for _, m := range pkg.Metadata.Meta {
		if m.Refines == "" {
			continue
		}
		key := strings.TrimPrefix(m.Refines, "#")
		if _, ok := metaProperties[key]; !ok {
			metaProperties[key] = map[string]string{}
		}
		metaProperties[key][m.Property] = strings.TrimSpace(m.Text)
	}

	title := ""
	if len(pkg.Metadata.Title) == 1 {
		title = pkg.Metadata.Title[0].Text
	} else if len(pkg.Metadata.Title) > 1 {
		for _, t := range pkg.Metadata.Title {
			if t.ID != "" && metaProperties[t.ID]["title-type"] == "main" {
				title = t.Text
				break
			}
		}
		if title == "" {
			title = pkg.Metadata.Title[0].Text
		}
	}

	authors := []string{}
	for _, creator := range pkg.Metadata.Creator {
		role := creator.Role
		if role == "" && creator.ID != "" {
			role = metaProperties[creator.ID]["role"]
		}
		name := strings.TrimSpace(creator.Text)
		if name == "" {
			continue
		}
		if role == "aut" || len(pkg.Metadata.Creator) == 1 {
			authors = append(authors, name)
		}
	}

	hrefs := map[string]string{}
	for _, item := range pkg.Manifest.Item {
		hrefs[item.ID] = item.Href
	}
	spine := []string{}
	for _, ref := range pkg.Spine.Itemref {
		href, ok := hrefs[ref.Idref]
		if !ok || href == "" {
			continue
		}
		spine = append(spine, resolveHref(basePath, href))
	}

	return &OPF{
		Title:   strings.TrimSpace(title),
		Authors: authors,
		Spine:   spine,
	}, nil
}

// resolveHref turns a manifest href into an archive path. Fragments are
// dropped and percent-encoding is undone.
func resolveHref(basePath, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	return path.Clean(basePath + href)
}
