// Package source fetches comment feeds and resolves titles for the
// overlay. Nothing here runs on the frame loop; callers invoke it from a
// goroutine and hand the result to the scheduler.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// ErrNotFound is returned when the upstream has no feed or no match.
var ErrNotFound = errors.New("source: not found")

// FetchError is a failed feed fetch for one content unit.
type FetchError struct {
	Unit string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch comments for %s: %v", e.Unit, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher loads the events of one content unit.
type Fetcher interface {
	FetchEvents(ctx context.Context, unit string) ([]danmaku.Event, error)
}

// Resolver searches for series by title.
type Resolver interface {
	Search(ctx context.Context, title string) ([]Anime, error)
}

// Episode is one episode of a search result.
type Episode struct {
	ID    int64  `json:"episodeId"`
	Title string `json:"episodeTitle"`
}

// Anime is a series returned by Search.
type Anime struct {
	ID       int64     `json:"animeId"`
	Title    string    `json:"animeTitle"`
	Type     string    `json:"type"`
	Episodes []Episode `json:"episodes"`
}
