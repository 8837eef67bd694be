package ingest

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// EPUBMetadata holds the Dublin Core fields of an EPUB package document.
type EPUBMetadata struct {
	Title   string
	Author  string
	Subject string
}

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Metadata struct {
		Titles   []string `xml:"title"`
		Creators []string `xml:"creator"`
		Subjects []string `xml:"subject"`
	} `xml:"metadata"`
}

// ExtractEPUBMetadata reads title, first creator and first subject from
// the package document named by META-INF/container.xml.
func ExtractEPUBMetadata(p string) (*EPUBMetadata, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, errors.Wrap(err, "open epub")
	}
	defer zr.Close()

	var container epubContainer
	if err := decodeZipXML(&zr.Reader, "META-INF/container.xml", &container); err != nil {
		return nil, err
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return nil, errors.New("epub container lists no package document")
	}

	var pkg epubPackage
	if err := decodeZipXML(&zr.Reader, path.Clean(container.Rootfiles[0].FullPath), &pkg); err != nil {
		return nil, err
	}

	return &EPUBMetadata{
		Title:   first(pkg.Metadata.Titles),
		Author:  first(pkg.Metadata.Creators),
		Subject: first(pkg.Metadata.Subjects),
	}, nil
}

func decodeZipXML(zr *zip.Reader, name string, v interface{}) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return errors.Wrapf(err, "open %s", name)
		}
		defer rc.Close()
		if err := xml.NewDecoder(io.LimitReader(rc, 4<<20)).Decode(v); err != nil {
			return errors.Wrapf(err, "parse %s", name)
		}
		return nil
	}
	return errors.Errorf("epub is missing %s", name)
}

func first(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
