package pipeline

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Feed is a pull adapter over a Source. Each Next call yields the most
// recent frame not yet seen by this feed; intermediate frames are
// silently dropped when the producer outpaces the consumer. Bounded
// staleness instead of unbounded queuing.
type Feed struct {
	source  *Source
	lastSeq uint64

	mu           sync.Mutex
	fps          float64
	windowStart  time.Time
	windowFrames int
}

func NewFeed(source *Source) *Feed {
	return &Feed{
		source: source,
	}
}

// Next blocks until a frame newer than the previous one is available
// and returns a clone the caller owns (and must Close). ok=false means
// the source stopped or ctx was cancelled; the feed is not restartable
// past that point.
func (f *Feed) Next(ctx context.Context) (gocv.Mat, bool) {
	mat, seq, ok := f.source.WaitFrame(ctx, f.lastSeq)
	if !ok {
		return gocv.Mat{}, false
	}
	f.lastSeq = seq
	f.tick(time.Now())
	return mat, true
}

// FPS is a coarse rolling rate estimate, recomputed once per elapsed
// second from the frames yielded in that window.
func (f *Feed) FPS() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fps
}

func (f *Feed) tick(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.windowStart.IsZero() {
		f.windowStart = now
	}
	f.windowFrames++

	elapsed := now.Sub(f.windowStart)
	if elapsed >= time.Second {
		f.fps = float64(f.windowFrames) / elapsed.Seconds()
		f.windowFrames = 0
		f.windowStart = now
	}
}
