package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.the-odds-api.com/v4"
	DefaultTimeout = 10 * time.Second
)

var ErrMissingAPIKey = errors.New("odds api key is not set")

// ErrorKind classifica falhas do provedor
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindTimeout      ErrorKind = "timeout"
	KindGeneric      ErrorKind = "generic"
)

type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return "invalid api key: " + e.Message
	case KindNotFound:
		return "sport not found: " + e.Message
	case KindRateLimited:
		return "rate limit exceeded: " + e.Message
	case KindTimeout:
		return "request timed out"
	}
	return fmt.Sprintf("api returned error: %d - %s", e.Status, e.Message)
}

// IsRateLimited indica erro 429 (o sync faz backoff nesse caso)
func IsRateLimited(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindRateLimited
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fala com a The Odds API
type Client struct {
	http   *resty.Client
	apiKey string

	mu        sync.Mutex
	remaining *int
	used      *int
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: hc, apiKey: cfg.APIKey}, nil
}

// FetchSports lista os esportes disponíveis
func (c *Client) FetchSports(ctx context.Context) ([]Sport, error) {
	var out []Sport
	err := c.get(ctx, "/sports/", nil, &out)
	return out, err
}

// FetchOdds busca os eventos de um esporte em odds americanas
func (c *Client) FetchOdds(ctx context.Context, sport string, regions, markets []string) ([]Event, error) {
	params := map[string]string{
		"regions":    strings.Join(regions, ","),
		"markets":    strings.Join(markets, ","),
		"oddsFormat": "american",
	}
	var out []Event
	err := c.get(ctx, "/sports/"+sport+"/odds/", params, &out)
	return out, err
}

// RequestsRemaining e RequestsUsed vêm dos headers da última resposta; -1 = desconhecido
func (c *Client) RequestsRemaining() int { return c.quota(&c.remaining) }
func (c *Client) RequestsUsed() int      { return c.quota(&c.used) }

func (c *Client) quota(p **int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *p == nil {
		return -1
	}
	return **p
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("apiKey", c.apiKey).
		Get(path)
	if err != nil {
		if isTimeout(err) {
			return &Error{Kind: KindTimeout, Message: err.Error()}
		}
		return &Error{Kind: KindGeneric, Message: err.Error()}
	}
	c.trackQuota(resp.Header())

	switch resp.StatusCode() {
	case http.StatusOK:
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode odds api response: %w", err)
		}
		return nil
	case http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	}
	return &Error{Kind: KindGeneric, Status: resp.StatusCode(), Message: string(resp.Body())}
}

func (c *Client) trackQuota(h http.Header) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, err := strconv.Atoi(h.Get("x-requests-remaining")); err == nil {
		c.remaining = &n
	}
	if n, err := strconv.Atoi(h.Get("x-requests-used")); err == nil {
		c.used = &n
	}
}

// errorMessage usa o campo "message" do corpo quando existir
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return string(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
