package ingest

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// Source holds a resolved input ready for reading.
type Source struct {
	// Name is the original filename (no directory).
	Name string
	// Size is the byte count if known in advance (-1 if unknown).
	Size int64
	// Open returns a new ReadCloser. May be called once.
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Resolve determines the type of input and returns a Source.
// Supported formats:
//
//	/path/to/file.pdf          local file
//	https://example.com/f.pdf  HTTP URL
func Resolve(ctx context.Context, input string) (*Source, error) {
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return resolveHTTP(ctx, resty.New().SetTimeout(5*time.Minute), input)
	}
	return resolveFile(input)
}

func resolveFile(p string) (*Source, error) {
	fi, err := os.Stat(p)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", p)
	}
	if fi.IsDir() {
		return nil, errors.Errorf("%q is a directory", p)
	}
	return &Source{
		Name: filepath.Base(p),
		Size: fi.Size(),
		Open: func(context.Context) (io.ReadCloser, error) { return os.Open(p) },
	}, nil
}

func resolveHTTP(ctx context.Context, client *resty.Client, rawURL string) (*Source, error) {
	// HEAD the URL to learn the size; failures here are not fatal.
	size := int64(-1)
	head, err := client.R().SetContext(ctx).Head(rawURL)
	if err == nil && head.StatusCode() == http.StatusOK {
		if cl := head.RawResponse.ContentLength; cl > 0 {
			size = cl
		}
	}

	return &Source{
		Name: guessFilenameFromURL(rawURL),
		Size: size,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			resp, err := client.R().
				SetContext(ctx).
				SetDoNotParseResponse(true).
				Get(rawURL)
			if err != nil {
				return nil, errors.Wrapf(err, "GET %s", rawURL)
			}
			body := resp.RawBody()
			if resp.StatusCode() != http.StatusOK {
				body.Close()
				return nil, errors.Errorf("GET %s: status %d", rawURL, resp.StatusCode())
			}
			return body, nil
		},
	}, nil
}

func guessFilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return "download"
	}
	return base
}
