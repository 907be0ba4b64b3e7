package source

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// Comment is one entry of a comment response. P packs
// "time,mode,color,uid": mode 1 scrolls, 4 pins to the bottom and 5 to the
// top; color is a decimal RGB integer.
type Comment struct {
	CID int64  `json:"cid"`
	P   string `json:"p"`
	M   string `json:"m"`
}

// CommentResponse is the body of GET /api/v2/comment/{episodeId}.
type CommentResponse struct {
	Count    int       `json:"count"`
	Comments []Comment `json:"comments"`
}

// Feed mode numbers.
const (
	modeScroll = 1
	modeBottom = 4
	modeTop    = 5
)

// ParseComment converts a raw comment into an Event.
func ParseComment(c Comment) (danmaku.Event, error) {
	fields := strings.Split(c.P, ",")
	if len(fields) < 1 || strings.TrimSpace(fields[0]) == "" {
		return danmaku.Event{}, fmt.Errorf("comment %d: empty p attribute", c.CID)
	}
	ts, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return danmaku.Event{}, fmt.Errorf("comment %d: time %q: %w", c.CID, fields[0], err)
	}

	e := danmaku.Event{Time: ts, Kind: danmaku.Scroll, Text: c.M}
	if len(fields) > 1 {
		switch mode, _ := strconv.Atoi(strings.TrimSpace(fields[1])); mode {
		case modeBottom:
			e.Kind = danmaku.Bottom
		case modeTop:
			e.Kind = danmaku.Top
		}
	}
	if len(fields) > 2 {
		if rgb, err := strconv.ParseUint(strings.TrimSpace(fields[2]), 10, 32); err == nil && rgb <= 0xFFFFFF {
			e.Color = fmt.Sprintf("#%06X", rgb)
		}
	}
	return e.Normalize(), nil
}

// ParseComments converts a response, skipping malformed and empty
// comments. It returns the events and the number skipped.
func ParseComments(resp CommentResponse) ([]danmaku.Event, int) {
	events := make([]danmaku.Event, 0, len(resp.Comments))
	skipped := 0
	for _, c := range resp.Comments {
		if strings.TrimSpace(c.M) == "" {
			skipped++
			continue
		}
		e, err := ParseComment(c)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, e)
	}
	return events, skipped
}
