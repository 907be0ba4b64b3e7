// Package app is the bubbletea front-end of drawisthintv. It owns the
// frame loop: every TickEvent advances the overlay scheduler by one frame
// against the playback clock, and feed fetches run as commands whose
// results come back as messages on the same loop.
package app

import (
	"time"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
	"github.com/zhaozixinnn/drawisthintv/pkg/source"
)

// TickEvent is sent by the frame ticker.
type TickEvent struct {
	Time time.Time
}

// EventsLoadedMsg carries a fetched feed back into the update loop. Unit
// is the key the fetch was started for; results for any other unit are
// dropped. Seq numbers the Model's own fetches so a refetch of the same
// unit supersedes an older one still in flight; zero is never superseded.
type EventsLoadedMsg struct {
	Unit      string
	Seq       int
	Events    []danmaku.Event
	Err       error
	Timestamp time.Time
}

// SearchResultMsg carries title search results.
type SearchResultMsg struct {
	Query   string
	Results []source.Anime
	Err     error
}

// MediaMsg reports what the player is showing. A player integration sends
// it through tea.Program.Send.
type MediaMsg struct {
	Title   string
	Episode int
}

// NoticeExpiredMsg dismisses the notice with the matching ID.
type NoticeExpiredMsg struct {
	ID int
}
