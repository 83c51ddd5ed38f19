package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/service/lgr"
)

// RenderFunc draws one annotated frame. It is only ever invoked from
// the single goroutine running Display.Run, because windowing layers
// are not safe to drive from multiple goroutines.
type RenderFunc func(cameraID int, frame gocv.Mat)

type renderItem struct {
	cameraID int
	frame    FrameData
}

// Display is the bounded hand-off between camera agents and the single
// render goroutine. Submissions never block: when the channel is full
// the newest frame is dropped and counted, so a slow renderer cannot
// stall capture or detection.
type Display struct {
	ch    chan renderItem
	drops atomic.Int64
}

func NewDisplay(depth int) *Display {
	if depth <= 0 {
		depth = 1
	}
	return &Display{
		ch: make(chan renderItem, depth),
	}
}

// Submit hands an annotated frame to the render goroutine, taking
// ownership of mat. Returns false when the frame was dropped because
// the queue was full.
func (d *Display) Submit(cameraID int, mat gocv.Mat) bool {
	item := renderItem{
		cameraID: cameraID,
		frame: FrameData{
			Mat:       mat,
			Timestamp: time.Now(),
		},
	}

	select {
	case d.ch <- item:
		return true
	default:
		mat.Close()
		d.drops.Add(1)
		return false
	}
}

// Drops reports how many submissions have been discarded so far.
func (d *Display) Drops() int64 {
	return d.drops.Load()
}

// Run drives render from exactly one goroutine until ctx is cancelled,
// then drains and releases any queued frames.
func (d *Display) Run(ctx context.Context, render RenderFunc) {
	for {
		select {
		case <-ctx.Done():
			lgr.Logger.Info("display context cancelled")
			for {
				select {
				case item := <-d.ch:
					item.frame.Mat.Close()
				default:
					return
				}
			}

		case item := <-d.ch:
			if render != nil {
				render(item.cameraID, item.frame.Mat)
			}
			item.frame.Mat.Close()
		}
	}
}
