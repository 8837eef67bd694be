package drive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scope grants access to files created by this application only.
const Scope = "https://www.googleapis.com/auth/drive.file"

// LoginConfig identifies the OAuth client used by Login.
type LoginConfig struct {
	ClientID     string
	ClientSecret string
	// RedirectURL must be registered for the client. The browser lands
	// there with ?code=... after consent.
	RedirectURL string
	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
}

func (lc LoginConfig) oauth() *oauth2.Config {
	endpoint := lc.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	redirect := lc.RedirectURL
	if redirect == "" {
		redirect = "http://localhost"
	}
	return &oauth2.Config{
		ClientID:     lc.ClientID,
		ClientSecret: lc.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{Scope},
	}
}

// Login runs the manual consent flow: it prints the consent URL to out,
// reads the authorization code (or the whole redirect URL) from in and
// exchanges it for a token.
func Login(ctx context.Context, lc LoginConfig, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	if lc.ClientID == "" {
		return nil, errors.New("drive.client_id is not configured")
	}
	conf := lc.oauth()
	state := uuid.NewString()

	fmt.Fprintf(out, "Open this URL in a browser and approve access:\n\n  %s\n\n", conf.AuthCodeURL(state))
	fmt.Fprint(out, "Paste the code or the full redirect URL: ")

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, errors.Wrap(err, "read authorization code")
	}
	code, err := parseAuthCode(strings.TrimSpace(line), state)
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "exchange authorization code")
	}
	return tok, nil
}

// parseAuthCode accepts a bare code or a redirect URL carrying code and
// state query parameters.
func parseAuthCode(input, state string) (string, error) {
	if input == "" {
		return "", errors.New("no authorization code entered")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", errors.Wrap(err, "parse redirect URL")
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", errors.Errorf("authorization denied: %s", e)
	}
	if got := q.Get("state"); got != "" && got != state {
		return "", errors.New("redirect URL belongs to a different login attempt")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code parameter")
	}
	return code, nil
}
