package ingest

import (
	"encoding/hex"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// PDFMetadata holds the Info dictionary strings of a PDF.
type PDFMetadata struct {
	Title   string
	Author  string
	Subject string
}

// pdfScanWindow is how much of the head and the tail of a PDF is searched.
// The Info dictionary almost always sits in one of them.
const pdfScanWindow = 64 << 10

var pdfFieldPatterns = map[string][2]*regexp.Regexp{}

func init() {
	for _, field := range []string{"Title", "Author", "Subject"} {
		pdfFieldPatterns[field] = [2]*regexp.Regexp{
			regexp.MustCompile(`/` + field + `\s*\(((?:\\.|[^\\)])*)\)`),
			regexp.MustCompile(`/` + field + `\s*<([0-9A-Fa-f\s]+)>`),
		}
	}
}

// ExtractPDFMetadata reads title, author and subject from the Info
// dictionary without a full PDF parser. Encrypted or object-stream
// compressed files yield empty fields, not an error.
func ExtractPDFMetadata(path string) (*PDFMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	text, err := readHeadTail(f, fi.Size())
	if err != nil {
		return nil, err
	}

	return &PDFMetadata{
		Title:   extractField(text, "Title"),
		Author:  extractField(text, "Author"),
		Subject: extractField(text, "Subject"),
	}, nil
}

func readHeadTail(r io.ReaderAt, size int64) (string, error) {
	if size <= 2*pdfScanWindow {
		buf := make([]byte, size)
		if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
			return "", errors.WithStack(err)
		}
		return string(buf), nil
	}

	head := make([]byte, pdfScanWindow)
	if _, err := r.ReadAt(head, 0); err != nil {
		return "", errors.WithStack(err)
	}
	tail := make([]byte, pdfScanWindow)
	if _, err := r.ReadAt(tail, size-pdfScanWindow); err != nil && err != io.EOF {
		return "", errors.WithStack(err)
	}
	return string(head) + "\n" + string(tail), nil
}

// extractField looks for /Field (literal) or /Field <hex> in text.
func extractField(text, field string) string {
	patterns, ok := pdfFieldPatterns[field]
	if !ok {
		return ""
	}
	if m := patterns[0].FindStringSubmatch(text); m != nil {
		return decodePDFString(m[1])
	}
	if m := patterns[1].FindStringSubmatch(text); m != nil {
		return decodeHexString(m[1])
	}
	return ""
}

var pdfEscapes = strings.NewReplacer(
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
)

func decodePDFString(s string) string {
	return strings.TrimSpace(pdfEscapes.Replace(s))
}

// decodeHexString decodes a PDF hex string. A FEFF byte order mark
// selects UTF-16BE, otherwise bytes are taken as-is.
func decodeHexString(s string) string {
	s = strings.Join(strings.Fields(s), "")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return ""
	}

	if len(raw) < 2 || raw[0] != 0xFE || raw[1] != 0xFF {
		return strings.TrimSpace(string(raw))
	}
	raw = raw[2:]
	if len(raw)%2 != 0 {
		return ""
	}
	u16 := make([]uint16, len(raw)/2)
	for i := range u16 {
		u16[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
	}
	return strings.TrimSpace(string(utf16.Decode(u16)))
}
