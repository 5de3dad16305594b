package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/metrics"
	"git.home.luguber.info/inful/storysite/internal/retry"
)

// Client is the read-only contract the derivation pipeline needs from the
// content API. Fakes implement it in tests.
type Client interface {
	FetchLinks(ctx context.Context, version string) ([]Link, error)
	FetchLinksByPrefix(ctx context.Context, prefix, version string) ([]Link, error)
	FetchStoriesBySlugs(ctx context.Context, slugs []string, version string) ([]Story, error)
	FetchAllStories(ctx context.Context, version string, page, perPage int) (StoriesPage, error)
	FetchStory(ctx context.Context, slug, version string) (*Story, error)
}

// APIClient talks to a Storyblok-compatible content-delivery API.
type APIClient struct {
	baseURL  string
	token    string
	http     *http.Client
	recorder metrics.Recorder
	retry    retry.Policy
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.http = hc }
}

// WithTimeout sets the per-request timeout on the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *APIClient) { c.recorder = r }
}

// WithRetryPolicy sets the backoff policy applied to retryable fetch
// failures. The default never retries.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *APIClient) { c.retry = p }
}

// NewAPIClient creates a content API client. baseURL is the API root
// (e.g. https://api.storyblok.com/v1), token the public access token.
func NewAPIClient(baseURL, token string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		token:    token,
		http:     &http.Client{Timeout: 15 * time.Second},
		recorder: metrics.NoopRecorder{},
		retry:    retry.None(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// linksResponse mirrors the cdn/links payload: links keyed by UUID.
type linksResponse struct {
	Links map[string]Link `json:"links"`
}

type storiesResponse struct {
	Stories []Story `json:"stories"`
}

type storyResponse struct {
	Story *Story `json:"story"`
}

// FetchLinks retrieves the full link tree for the given content version.
// The upstream keys links by UUID; decoded entries are ordered by ID so
// downstream stable sorts see a deterministic input order.
func (c *APIClient) FetchLinks(ctx context.Context, version string) ([]Link, error) {
	return c.fetchLinks(ctx, version, "")
}

// FetchLinksByPrefix retrieves the link tree entries whose slug starts with
// the given prefix. Used for the footer's reserved "_footer" subtree.
func (c *APIClient) FetchLinksByPrefix(ctx context.Context, prefix, version string) ([]Link, error) {
	return c.fetchLinks(ctx, version, prefix)
}

func (c *APIClient) fetchLinks(ctx context.Context, version, prefix string) ([]Link, error) {
	q := url.Values{}
	q.Set("version", version)
	if prefix != "" {
		q.Set("starts_with", prefix)
	}

	var payload linksResponse
	if _, err := c.get(ctx, "cdn/links", q, &payload); err != nil {
		return nil, err
	}

	links := make([]Link, 0, len(payload.Links))
	for _, l := range payload.Links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, nil
}

// FetchStoriesBySlugs retrieves the stories matching the given full slugs.
func (c *APIClient) FetchStoriesBySlugs(ctx context.Context, slugs []string, version string) ([]Story, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	q := url.Values{}
	q.Set("version", version)
	q.Set("by_slugs", strings.Join(slugs, ","))

	var payload storiesResponse
	if _, err := c.get(ctx, "cdn/stories", q, &payload); err != nil {
		return nil, err
	}
	return payload.Stories, nil
}

// FetchAllStories retrieves one page of the full story listing. Total is
// taken from the upstream Total header so callers can page exhaustively.
func (c *APIClient) FetchAllStories(ctx context.Context, version string, page, perPage int) (StoriesPage, error) {
	q := url.Values{}
	q.Set("version", version)
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var payload storiesResponse
	header, err := c.get(ctx, "cdn/stories", q, &payload)
	if err != nil {
		return StoriesPage{}, err
	}

	total := len(payload.Stories)
	if t, convErr := strconv.Atoi(header.Get("Total")); convErr == nil && t >= 0 {
		total = t
	}
	return StoriesPage{Stories: payload.Stories, Total: total}, nil
}

// FetchStory retrieves a single story by slug. A missing story surfaces as a
// not_found error, the one condition callers must propagate.
func (c *APIClient) FetchStory(ctx context.Context, slug, version string) (*Story, error) {
	q := url.Values{}
	q.Set("version", version)

	var payload storyResponse
	if _, err := c.get(ctx, "cdn/stories/"+slug, q, &payload); err != nil {
		return nil, err
	}
	if payload.Story == nil {
		return nil, serrors.NotFound(fmt.Sprintf("no story for slug %q", slug)).WithContext("slug", slug)
	}
	return payload.Story, nil
}

// get performs a GET against the content API, retrying retryable failures
// per the configured backoff policy.
func (c *APIClient) get(ctx context.Context, endpoint string, q url.Values, out any) (http.Header, error) {
	for attempt := 0; ; attempt++ {
		header, err := c.doGet(ctx, endpoint, q, out)
		if err == nil {
			return header, nil
		}
		if attempt >= c.retry.MaxRetries || !serrors.IsRetryable(err) {
			return nil, err
		}
		if waitErr := c.retry.Wait(ctx, attempt+1); waitErr != nil {
			return nil, err
		}
	}
}

// doGet performs a single GET and decodes the JSON body.
func (c *APIClient) doGet(ctx context.Context, endpoint string, q url.Values, out any) (http.Header, error) {
	start := time.Now()
	q.Set("token", c.token)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, serrors.Wrap(err, serrors.CategoryCMS, serrors.SeverityError, "build content API request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	c.recorder.ObserveFetchDuration(endpoint, time.Since(start))
	if err != nil {
		c.recorder.IncFetchResult(endpoint, false)
		return nil, serrors.UpstreamError(err, fmt.Sprintf("content API unreachable: %s", endpoint)).
			WithContext("endpoint", endpoint)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		c.recorder.IncFetchResult(endpoint, false)
		return nil, serrors.NotFound(fmt.Sprintf("content API returned 404 for %s", endpoint)).
			WithContext("endpoint", endpoint)
	}
	if resp.StatusCode != http.StatusOK {
		c.recorder.IncFetchResult(endpoint, false)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, serrors.UpstreamError(
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			fmt.Sprintf("content API error on %s", endpoint),
		).WithContext("endpoint", endpoint).WithContext("status", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.recorder.IncFetchResult(endpoint, false)
		return nil, serrors.Wrap(err, serrors.CategoryCMS, serrors.SeverityError,
			fmt.Sprintf("decode content API response for %s", endpoint))
	}

	c.recorder.IncFetchResult(endpoint, true)
	return resp.Header, nil
}
