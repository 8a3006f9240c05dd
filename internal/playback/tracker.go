package playback

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EventSink receives terminal watch-session events. Progress records,
// streaks and badges live downstream of it.
type EventSink interface {
	LessonCompleted(ctx context.Context, licenseKey, videoID string)
}

// Tracker consumes playback-position notifications from the external event
// source (however the video host transports them) and emits a single
// completion per license/video within the dedup window. A watch session
// moves Unauthorized -> Authorized -> Completed; only the last transition
// has side effects here.
type Tracker struct {
	dedup *lru.Cache[string, time.Time]
	ttl   time.Duration
	sink  EventSink
}

func NewTracker(maxKeys int, ttl time.Duration, sink EventSink) *Tracker {
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Tracker{dedup: c, ttl: ttl, sink: sink}
}

// Position records a timeupdate notification. Positions only read playback
// state and never touch license state.
func (t *Tracker) Position(licenseKey, videoID string, seconds float64) {
	// No bookkeeping needed server-side; the client drives progress
	// display. Kept as an explicit no-op so the event contract is whole.
}

// Completed handles an end-of-video notification. Returns true when the
// completion was fresh (and forwarded), false when it was a duplicate
// within the window.
func (t *Tracker) Completed(ctx context.Context, licenseKey, videoID string) bool {
	key := fmt.Sprintf("%s|%s", licenseKey, videoID)
	if at, ok := t.dedup.Get(key); ok && time.Since(at) < t.ttl {
		return false
	}
	t.dedup.Add(key, time.Now())

	if t.sink != nil {
		t.sink.LessonCompleted(ctx, licenseKey, videoID)
	}
	return true
}
