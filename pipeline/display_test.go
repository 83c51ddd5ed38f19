package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestDisplayDropsNewestWhenFull(t *testing.T) {
	d := NewDisplay(1)

	// Nobody is consuming, so only the first submission fits.
	first := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	require.True(t, d.Submit(0, first))

	for i := 0; i < 3; i++ {
		m := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
		require.False(t, d.Submit(0, m), "submission %d should be dropped", i)
	}

	require.EqualValues(t, 3, d.Drops())

	// Drain so the queued Mat gets released.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx, nil)
}

func TestDisplayRendersFromSingleGoroutine(t *testing.T) {
	d := NewDisplay(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rendered atomic.Int64
	done := make(chan struct{})
	go func() {
		d.Run(ctx, func(cameraID int, frame gocv.Mat) {
			rendered.Add(1)
		})
		close(done)
	}()

	for i := 0; i < 5; i++ {
		m := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
		d.Submit(1, m)
	}

	require.Eventually(t, func() bool {
		return rendered.Load() == 5
	}, 2*time.Second, 10*time.Millisecond)
	require.Zero(t, d.Drops())

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("display did not stop on cancellation")
	}
}
