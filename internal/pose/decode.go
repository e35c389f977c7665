package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrEmptyClip = errors.New("clip has no frames")

// ParseClip decodes a landmark dump. Frames missing an explicit timestamp
// are assigned one from the frame index and FPS. Timestamps must be
// monotonically non-decreasing.
func ParseClip(r io.Reader) (*Clip, error) {
	var c Clip
	dec := json.NewDecoder(r)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	if len(c.Frames) == 0 {
		return nil, ErrEmptyClip
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	prev := -1.0
	for i := range c.Frames {
		f := &c.Frames[i]
		if f.Timestamp == 0 && f.Index > 0 {
			f.Timestamp = float64(f.Index) / c.FPS
		}
		if f.Timestamp < prev {
			return nil, fmt.Errorf("frame %d: timestamp %.3f precedes %.3f", f.Index, f.Timestamp, prev)
		}
		prev = f.Timestamp
	}
	return &c, nil
}

// ParseClipFile opens and decodes a landmark dump from disk.
func ParseClipFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseClip(f)
}
