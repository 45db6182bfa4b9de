package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/acs/internal/models"
	"github.com/desertthunder/acs/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	refreshPath  = "/auth/refresh"
)

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL          string
	HTTPClient       *http.Client
	Timeout          time.Duration
	Store            TokenStore
	Logger           *log.Logger
	OnSessionExpired func(err error)
}

// Request describes one outbound API call.
//
// SkipAuth omits the bearer header and disables the refresh-and-retry path.
type Request struct {
	Method   string
	Path     string
	Query    url.Values
	Body     any
	SkipAuth bool
}

// Gateway sends JSON requests to the content studio API, renewing the session
// transparently when the access token has expired.
type Gateway struct {
	baseURL *url.URL
	client  *http.Client
	timeout time.Duration
	session *SessionManager
	logger  *log.Logger
}

// NewGateway creates a gateway for the API rooted at opts.BaseURL.
func NewGateway(opts GatewayOpts) (*Gateway, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("%w: api base url is required", shared.ErrMissingConfig)
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: api base url %q", shared.ErrInvalidConfig, opts.BaseURL)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Store == nil {
		opts.Store = NewMemoryTokenStore(nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	g := &Gateway{
		baseURL: base,
		client:  opts.HTTPClient,
		timeout: opts.Timeout,
		logger:  shared.WithLogger(opts.Logger, "component", "gateway"),
	}
	g.session = NewSessionManager(opts.Store, g.refresh, SessionOpts{
		Timeout:          opts.Timeout,
		Logger:           g.logger,
		OnSessionExpired: opts.OnSessionExpired,
	})
	return g, nil
}

// Session exposes the gateway's session coordinator.
func (g *Gateway) Session() *SessionManager { return g.session }

// BaseURL returns the API root.
func (g *Gateway) BaseURL() string { return g.baseURL.String() }

// Send performs req and decodes a successful JSON response into out, which may be nil.
//
// A 401 on an authenticated request triggers one session renewal and one retry.
// A second 401 ends the session. Every failure is returned as an [*APIError].
func (g *Gateway) Send(ctx context.Context, req Request, out any) error {
	var token *oauth2.Token
	if !req.SkipAuth {
		t, err := g.session.Token()
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		token = t
	}

	status, body, err := g.do(ctx, req, token)
	if err != nil {
		return newTransportError(err)
	}

	if status == http.StatusUnauthorized && !req.SkipAuth {
		stale := ""
		if token != nil {
			stale = token.AccessToken
		}
		g.logger.Debug("access token rejected, renewing session", "path", req.Path)

		fresh, err := g.session.Renew(ctx, stale)
		if err != nil {
			if _, ok := AsAPIError(err); ok {
				return err
			}
			return newTransportError(err)
		}

		status, body, err = g.do(ctx, req, fresh)
		if err != nil {
			return newTransportError(err)
		}
		if status == http.StatusUnauthorized {
			return g.session.Expire(newStatusError(status, body))
		}
	}

	if status < 200 || status >= 300 {
		apiErr := newStatusError(status, body)
		g.logger.Debug("api error", "path", req.Path, "status", status, "category", apiErr.Category)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &APIError{
			Category:    CategoryUnknown,
			Status:      status,
			Message:     fmt.Sprintf("failed to decode response: %v", err),
			UserMessage: msgUnknown,
			Err:         shared.ErrAPIRequest,
		}
	}
	return nil
}

func (g *Gateway) endpoint(path string, query url.Values) string {
	u := g.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a single attempt and returns the status and raw body.
func (g *Gateway) do(ctx context.Context, req Request, token *oauth2.Token) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var reader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.endpoint(req.Path, req.Query), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", shared.GenerateID())
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(httpReq)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

type tokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// authResponse accepts both the nested {tokens:{access,refresh}} shape and the
// flat {accessToken,refreshToken} shape.
type authResponse struct {
	User         *models.UserDTO `json:"user"`
	Tokens       *tokenPair      `json:"tokens"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
}

func (r authResponse) token() *oauth2.Token {
	access, refresh := r.AccessToken, r.RefreshToken
	if r.Tokens != nil && r.Tokens.Access != "" {
		access, refresh = r.Tokens.Access, r.Tokens.Refresh
	}
	if access == "" {
		return nil
	}
	return NewToken(access, refresh)
}

// NewToken builds a bearer credential pair, filling Expiry from the access token's
// exp claim when it is a JWT. The signature is not verified.
func NewToken(access, refresh string) *oauth2.Token {
	token := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			token.Expiry = exp.Time
		}
	}
	return token
}

func (g *Gateway) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	var resp authResponse
	err := g.Send(ctx, Request{
		Method:   http.MethodPost,
		Path:     refreshPath,
		Body:     map[string]string{"refreshToken": refreshToken},
		SkipAuth: true,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	token := resp.token()
	if token == nil {
		return nil, fmt.Errorf("%w: response carried no access token", shared.ErrRefreshFailed)
	}
	return token, nil
}
