package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// DefaultBaseURL is the public comment API.
const DefaultBaseURL = "https://api.dandanplay.net"

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration // per request; default 10s
	AppID     string        // sent as X-AppId when set
	AppSecret string        // sent as X-AppSecret when set
	UserAgent string

	// HTTPClient overrides the transport. Timeout is ignored when set.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to a dandanplay-compatible comment API. Concurrent calls
// for the same title or episode share one request. The shared request is
// bounded by the client timeout, not by any one caller's context, so a
// caller that gives up does not fail the others.
type Client struct {
	base  string
	cfg   ClientConfig
	http  *http.Client
	log   *slog.Logger
	group singleflight.Group
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "drawisthintv"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:  cfg,
		http: hc,
		log:  log,
	}
}

type searchResponse struct {
	Success      bool    `json:"success"`
	ErrorCode    int     `json:"errorCode"`
	ErrorMessage string  `json:"errorMessage"`
	Animes       []Anime `json:"animes"`
}

// Search looks up series matching title. It returns ErrNotFound when
// nothing matches. The returned slice is shared with concurrent callers
// and must not be modified.
func (c *Client) Search(ctx context.Context, title string) ([]Anime, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("search: empty title: %w", ErrNotFound)
	}
	v, shared, err := c.share(ctx, "search:"+title, func(ctx context.Context) (any, error) {
		return c.search(ctx, title)
	})
	if err != nil {
		return nil, err
	}
	c.log.Debug("search done", "title", title, "shared", shared)
	return v.([]Anime), nil
}

func (c *Client) search(ctx context.Context, title string) ([]Anime, error) {
	q := url.Values{"anime": {title}}
	var resp searchResponse
	if err := c.getJSON(ctx, "/api/v2/search/episodes?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	if !resp.Success && resp.ErrorCode != 0 {
		return nil, fmt.Errorf("search %q: api error %d: %s", title, resp.ErrorCode, resp.ErrorMessage)
	}
	if len(resp.Animes) == 0 {
		return nil, fmt.Errorf("search %q: %w", title, ErrNotFound)
	}
	return resp.Animes, nil
}

// FetchEvents downloads the comments of one episode, including comments
// from related third-party sources. Errors are *FetchError.
func (c *Client) FetchEvents(ctx context.Context, unit string) ([]danmaku.Event, error) {
	v, _, err := c.share(ctx, "comments:"+unit, func(ctx context.Context) (any, error) {
		var resp CommentResponse
		path := "/api/v2/comment/" + url.PathEscape(unit) + "?withRelated=true"
		if err := c.getJSON(ctx, path, &resp); err != nil {
			return nil, err
		}
		events, skipped := ParseComments(resp)
		c.log.Debug("comments fetched", "unit", unit, "count", len(events), "skipped", skipped)
		return events, nil
	})
	if err != nil {
		return nil, &FetchError{Unit: unit, Err: err}
	}
	events := v.([]danmaku.Event)
	return append([]danmaku.Event(nil), events...), nil
}

// share runs fn once per key across concurrent callers. Each caller waits
// on its own ctx; fn gets a context that keeps ctx's values, drops its
// cancellation and carries the client timeout.
func (c *Client) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, bool, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()
		return fn(callCtx)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		return r.Val, r.Shared, r.Err
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.AppID != "" {
		req.Header.Set("X-AppId", c.cfg.AppID)
	}
	if c.cfg.AppSecret != "" {
		req.Header.Set("X-AppSecret", c.cfg.AppSecret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
