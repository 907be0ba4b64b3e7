package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhaozixinnn/drawisthintv/pkg/danmaku"
)

// FileFetcher loads feeds from local files. The unit is a path, resolved
// against Dir when relative. ".json" files hold a comment response;
// ".yaml" and ".yml" files hold a fixture:
//
//	events:
//	  - time: 5
//	    text: hi
//	    kind: top
//	    color: "#FF0000"
type FileFetcher struct {
	Dir string
}

// Fixture is the YAML feed format.
type Fixture struct {
	Title  string          `yaml:"title,omitempty"`
	Events []danmaku.Event `yaml:"events"`
}

// FetchEvents implements Fetcher.
func (f FileFetcher) FetchEvents(ctx context.Context, unit string) ([]danmaku.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Unit: unit, Err: err}
	}
	path := unit
	if f.Dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, &FetchError{Unit: unit, Err: err}
	}

	events, err := DecodeFeed(filepath.Ext(path), data)
	if err != nil {
		return nil, &FetchError{Unit: unit, Err: err}
	}
	return events, nil
}

// DecodeFeed decodes a feed by file extension.
func DecodeFeed(ext string, data []byte) ([]danmaku.Event, error) {
	switch strings.ToLower(ext) {
	case ".json":
		var resp CommentResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode json feed: %w", err)
		}
		events, _ := ParseComments(resp)
		return events, nil
	case ".yaml", ".yml":
		var fx Fixture
		if err := yaml.Unmarshal(data, &fx); err != nil {
			return nil, fmt.Errorf("decode yaml feed: %w", err)
		}
		events := make([]danmaku.Event, 0, len(fx.Events))
		for _, e := range fx.Events {
			events = append(events, e.Normalize())
		}
		return events, nil
	default:
		return nil, fmt.Errorf("unsupported feed format %q", ext)
	}
}
