// Package check speaks the engine's HTTP check protocol against a locally
// supervised server or any remote endpoint exposing the same API.
package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kovanov/redline/internal/match"
)

// PublicAPIURL is the hosted engine endpoint.
const PublicAPIURL = "https://api.languagetool.org/v2"

const (
	defaultTimeout     = 5 * time.Minute
	defaultConcurrency = 4

	// DefaultMaxChunk is the fragment size limit (in runes) beyond which a
	// check request is split at text boundaries.
	DefaultMaxChunk = 20000
)

// LanguageToolError is a structured rejection from the engine, e.g. a
// text-too-long refusal. The engine is reachable; the request was refused.
type LanguageToolError struct {
	StatusCode int
	Message    string
}

func (e *LanguageToolError) Error() string {
	return fmt.Sprintf("languagetool: %s (status %d)", e.Message, e.StatusCode)
}

// RateLimitError reports that the public API refused the request because of
// rate limiting.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return "languagetool: " + e.Message }

// Language is one entry of the engine's supported-language list.
type Language struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	LongCode string `json:"longCode"`
}

// Params are the per-request options serialized onto a check call.
type Params struct {
	Language           string
	MotherTongue       string
	DisabledRules      []string
	EnabledRules       []string
	EnabledOnly        bool
	DisabledCategories []string
	EnabledCategories  []string
	PreferredVariants  []string
	Picky              bool
}

// form serializes p plus the text into the engine's form parameters.
func (p Params) form(text string) url.Values {
	vals := url.Values{}
	vals.Set("language", p.Language)
	vals.Set("text", text)
	if p.MotherTongue != "" {
		vals.Set("motherTongue", p.MotherTongue)
	}
	if len(p.DisabledRules) > 0 {
		vals.Set("disabledRules", strings.Join(p.DisabledRules, ","))
	}
	if len(p.EnabledRules) > 0 {
		vals.Set("enabledRules", strings.Join(p.EnabledRules, ","))
	}
	if p.EnabledOnly {
		vals.Set("enabledOnly", "true")
	}
	if len(p.DisabledCategories) > 0 {
		vals.Set("disabledCategories", strings.Join(p.DisabledCategories, ","))
	}
	if len(p.EnabledCategories) > 0 {
		vals.Set("enabledCategories", strings.Join(p.EnabledCategories, ","))
	}
	if len(p.PreferredVariants) > 0 {
		vals.Set("preferredVariants", strings.Join(p.PreferredVariants, ","))
	}
	if p.Picky {
		vals.Set("level", "picky")
	}
	return vals
}

// Client issues check requests against one engine endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxChunk    int
	concurrency int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (and its timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxChunk sets the fragment size limit in runes; 0 disables chunking.
func WithMaxChunk(n int) Option {
	return func(c *Client) { c.maxChunk = n }
}

// WithConcurrency bounds how many fragments are checked in parallel.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// New creates a Client for the given base URL ("http://host:port/v2" or a
// remote equivalent). A bare host:port gets a scheme and /v2 suffix added.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     normalizeBaseURL(baseURL),
		httpClient:  &http.Client{Timeout: defaultTimeout},
		maxChunk:    DefaultMaxChunk,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if !strings.Contains(u, "://") {
		u = "http://" + u
	}
	if !strings.HasSuffix(u, "/v2") {
		u += "/v2"
	}
	return u
}

// BaseURL returns the normalized endpoint the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Check sends text for checking and returns matches with offsets into the
// original text. Texts longer than the chunk limit are split at paragraph
// or sentence boundaries, checked concurrently, and merged with each
// fragment's base offset added back.
func (c *Client) Check(ctx context.Context, text string, p Params) ([]match.Match, error) {
	frags := splitText(text, c.maxChunk)
	if len(frags) == 1 {
		return c.checkOne(ctx, frags[0].text, p)
	}

	results := make([][]match.Match, len(frags))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, frag := range frags {
		g.Go(func() error {
			matches, err := c.checkOne(gCtx, frag.text, p)
			if err != nil {
				return err
			}
			for j := range matches {
				matches[j].Offset += frag.offset
			}
			results[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []match.Match
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

func (c *Client) checkOne(ctx context.Context, text string, p Params) ([]match.Match, error) {
	body, err := c.post(ctx, "/check", p.form(text))
	if err != nil {
		return nil, err
	}
	return match.ParseResponse(body, text)
}

// Languages fetches the engine's supported-language list.
func (c *Client) Languages(ctx context.Context) ([]Language, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/languages", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting languages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var langs []Language
	if err := json.NewDecoder(resp.Body).Decode(&langs); err != nil {
		return nil, fmt.Errorf("decoding languages: %w", err)
	}
	return langs, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure: connection refused, DNS, timeout. The caller
		// can distinguish timeouts via errors.Is(err, context.DeadlineExceeded)
		// or the url.Error Timeout method.
		return nil, fmt.Errorf("%s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	if resp.StatusCode == http.StatusUpgradeRequired {
		// The public API signals rate limiting with 426.
		return &RateLimitError{Message: msg}
	}
	return &LanguageToolError{StatusCode: resp.StatusCode, Message: msg}
}
