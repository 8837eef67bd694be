// Package drive stores backup archives in Google Drive over its REST API.
package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

const (
	DefaultAPIBase    = "https://www.googleapis.com/drive/v3"
	DefaultUploadBase = "https://www.googleapis.com/upload/drive/v3"

	// maxErrorBody caps how much of a failed response ends up in APIError.
	maxErrorBody = 4 << 10
)

// Options configures a Client. Empty fields take the public Drive
// endpoints and DefaultNamePrefix.
type Options struct {
	APIBase    string
	UploadBase string
	NamePrefix string
	Timeout    time.Duration
	// RetryCount is how often a GET answered with 429 is retried.
	RetryCount int
}

// Client lists, uploads and downloads backup archives.
type Client struct {
	http       *resty.Client
	tokens     TokenStore
	apiBase    string
	uploadBase string
	prefix     string
}

// New returns a Client authenticating with tokens.
func New(tokens TokenStore, opts Options) *Client {
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	if opts.UploadBase == "" {
		opts.UploadBase = DefaultUploadBase
	}
	if opts.NamePrefix == "" {
		opts.NamePrefix = DefaultNamePrefix
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}

	rc := resty.New().
		SetTimeout(opts.Timeout).
		SetLogger(restyLogger{}).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(time.Second).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			if retryAfter := resp.Header().Get("Retry-After"); retryAfter != "" {
				if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
					return d, nil
				}
				if t, err := http.ParseTime(retryAfter); err == nil {
					return time.Until(t), nil
				}
			}
			return 0, nil
		}).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r != nil &&
				r.StatusCode() == http.StatusTooManyRequests &&
				r.Request.Method == http.MethodGet
		})

	return &Client{
		http:       rc,
		tokens:     tokens,
		apiBase:    strings.TrimRight(opts.APIBase, "/"),
		uploadBase: strings.TrimRight(opts.UploadBase, "/"),
		prefix:     opts.NamePrefix,
	}
}

// NamePrefix returns the prefix used to recognise backup archives.
func (c *Client) NamePrefix() string { return c.prefix }

func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	tok, ok := c.tokens.Get()
	if !ok {
		return nil, ErrNoToken
	}
	return c.http.R().SetContext(ctx).SetAuthToken(tok), nil
}

// checkStatus maps a non-2xx response to an error. A 401 clears the
// cached token before ErrUnauthorized is returned.
func (c *Client) checkStatus(ctx context.Context, resp *resty.Response, body []byte) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		if err := c.tokens.Clear(); err != nil {
			logger.FromContext(ctx).Warn("failed to clear drive token", logger.Data{"error": err.Error()})
		}
		return ErrUnauthorized
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{Status: resp.StatusCode(), Body: strings.TrimSpace(string(body))}
}

type listResponse struct {
	NextPageToken string     `json:"nextPageToken"`
	Files         []fileJSON `json:"files"`
}

// List returns the backup archives on Drive, newest first.
func (c *Client) List(ctx context.Context) ([]Archive, error) {
	params := map[string]string{
		"q":       fmt.Sprintf("name contains '%s' and mimeType='%s'", escapeQuery(c.prefix), ArchiveMIMEType),
		"orderBy": "createdTime desc",
		"fields":  "nextPageToken,files(id,name,createdTime,size)",
	}

	var out []Archive
	for {
		req, err := c.request(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := req.SetQueryParams(params).Get(c.apiBase + "/files")
		if err != nil {
			return nil, errors.Wrap(err, "list drive files")
		}
		if err := c.checkStatus(ctx, resp, resp.Body()); err != nil {
			return nil, err
		}

		var page listResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, errors.Wrap(err, "parse drive file list")
		}
		for _, f := range page.Files {
			out = append(out, f.archive())
		}

		if page.NextPageToken == "" {
			return out, nil
		}
		params["pageToken"] = page.NextPageToken
	}
}

// Upload sends the archive at localPath as a two-part body: JSON metadata
// naming the file after its base name, then the archive bytes.
func (c *Client) Upload(ctx context.Context, localPath string) (*Archive, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	name := filepath.Base(localPath)
	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetQueryParam("uploadType", "multipart").
		SetMultipartFields(
			&resty.MultipartField{
				Param:       "metadata",
				ContentType: "application/json; charset=UTF-8",
				Reader:      bytes.NewReader(meta),
			},
			&resty.MultipartField{
				Param:       "file",
				FileName:    name,
				ContentType: ArchiveMIMEType,
				Reader:      f,
			},
		).
		Post(c.uploadBase + "/files")
	if err != nil {
		return nil, errors.Wrapf(err, "upload %s", name)
	}
	if err := c.checkStatus(ctx, resp, resp.Body()); err != nil {
		return nil, err
	}

	uploaded := &Archive{Name: name}
	var created fileJSON
	if err := json.Unmarshal(resp.Body(), &created); err == nil {
		a := created.archive()
		if a.Name == "" {
			a.Name = name
		}
		uploaded = &a
	}
	logger.FromContext(ctx).Info("uploaded archive to drive", logger.Data{"name": uploaded.Name, "id": uploaded.ID})
	return uploaded, nil
}

// Download streams archive id to dest. The bytes land in dest+".tmp" and
// are renamed into place only after a successful response.
func (c *Client) Download(ctx context.Context, id, dest string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}

	tmp := dest + ".tmp"
	resp, err := req.
		SetQueryParam("alt", "media").
		SetOutput(tmp).
		Get(c.apiBase + "/files/" + url.PathEscape(id))
	if err != nil {
		_ = os.Remove(tmp)
		return errors.Wrapf(err, "download %s", id)
	}

	if !resp.IsSuccess() {
		body := readHead(tmp, maxErrorBody)
		_ = os.Remove(tmp)
		return c.checkStatus(ctx, resp, body)
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}

func readHead(path string, n int64) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	b, _ := io.ReadAll(io.LimitReader(f, n))
	return b
}

// escapeQuery escapes a value for a single-quoted Drive query string.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// restyLogger routes resty's own diagnostics to the default logger.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	logger.New().Error(fmt.Sprintf(format, v...))
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	logger.New().Warn(fmt.Sprintf(format, v...))
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	logger.New().Debug(fmt.Sprintf(format, v...))
}
