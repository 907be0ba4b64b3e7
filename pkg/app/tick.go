package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhaozixinnn/drawisthintv/pkg/session"
	"github.com/zhaozixinnn/drawisthintv/pkg/source"
)

// TickCmd returns a Cmd that sends a TickEvent after d. Each TickEvent
// schedules the next one, which makes it the frame clock.
func TickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickEvent{Time: t}
	})
}

// FetchCmd runs a feed fetch in a goroutine and delivers the result as an
// EventsLoadedMsg tagged with unitKey.
func FetchCmd(f source.Fetcher, unitKey, feedID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		events, err := f.FetchEvents(ctx, feedID)
		return EventsLoadedMsg{
			Unit:      unitKey,
			Events:    events,
			Err:       err,
			Timestamp: time.Now(),
		}
	}
}

// ResolveCmd looks up an inferred unit by title, picks its episode from the
// best match and fetches that feed.
func ResolveCmd(r source.Resolver, f source.Fetcher, u session.Unit, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		msg := EventsLoadedMsg{Unit: u.Key()}
		animes, err := r.Search(ctx, u.Title)
		if err == nil && len(animes) == 0 {
			err = source.ErrNotFound
		}
		if err != nil {
			msg.Err = &source.FetchError{Unit: u.Key(), Err: err}
			msg.Timestamp = time.Now()
			return msg
		}
		eps := animes[0].Episodes
		i := u.Episode - 1
		if i < 0 || i >= len(eps) {
			msg.Err = &source.FetchError{
				Unit: u.Key(),
				Err:  fmt.Errorf("%s has no episode %d: %w", animes[0].Title, u.Episode, source.ErrNotFound),
			}
			msg.Timestamp = time.Now()
			return msg
		}
		msg.Events, msg.Err = f.FetchEvents(ctx, fmt.Sprint(eps[i].ID))
		msg.Timestamp = time.Now()
		return msg
	}
}

// withSeq tags the EventsLoadedMsg produced by cmd with seq.
func withSeq(cmd tea.Cmd, seq int) tea.Cmd {
	return func() tea.Msg {
		msg := cmd()
		if loaded, ok := msg.(EventsLoadedMsg); ok {
			loaded.Seq = seq
			return loaded
		}
		return msg
	}
}

// SearchCmd runs a title search.
func SearchCmd(r source.Resolver, query string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		results, err := r.Search(ctx, query)
		return SearchResultMsg{Query: query, Results: results, Err: err}
	}
}

// noticeCmd expires notice id after ttl.
func noticeCmd(id int, ttl time.Duration) tea.Cmd {
	return tea.Tick(ttl, func(time.Time) tea.Msg {
		return NoticeExpiredMsg{ID: id}
	})
}
