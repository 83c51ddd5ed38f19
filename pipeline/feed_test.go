package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sitewatch/ss-go/model"
)

func TestFeedYieldsNewestFrame(t *testing.T) {
	ctx := context.Background()

	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, nil, 0, time.Millisecond)
	f := NewFeed(s)

	for _, shade := range []float64{10, 20, 30} {
		m := grayMat(t, shade)
		s.publish(m)
		m.Close()
	}

	// Intermediate frames were overwritten; the feed starts at the
	// newest one.
	got, ok := f.Next(ctx)
	require.True(t, ok)
	require.EqualValues(t, 30, got.GetUCharAt(0, 0))
	got.Close()

	// The same frame is not yielded twice; the next call blocks until
	// a newer frame arrives.
	next := make(chan float64, 1)
	go func() {
		m, ok := f.Next(ctx)
		if !ok {
			next <- -1
			return
		}
		defer m.Close()
		next <- float64(m.GetUCharAt(0, 0))
	}()

	time.Sleep(50 * time.Millisecond)
	m := grayMat(t, 40)
	s.publish(m)
	m.Close()

	select {
	case shade := <-next:
		require.EqualValues(t, 40, shade)
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not wake on new frame")
	}
}

func TestFeedStopsWithSource(t *testing.T) {
	ctx := context.Background()

	opener := func() (Device, error) { return nil, errDeviceClosed }
	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, opener, 0, time.Millisecond)
	s.Start(ctx)
	f := NewFeed(s)

	// The source degrades immediately; the feed observes the stop
	// instead of blocking forever.
	_, ok := f.Next(ctx)
	require.False(t, ok)
}

func TestFeedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, nil, 0, time.Millisecond)
	f := NewFeed(s)

	_, ok := f.Next(ctx)
	require.False(t, ok)
}

func TestFeedFPSWindow(t *testing.T) {
	f := NewFeed(nil)

	start := time.Now()
	// 30 frames spread over one second, then one more to close the
	// window.
	for i := 0; i < 30; i++ {
		f.tick(start.Add(time.Duration(i) * 33 * time.Millisecond))
	}
	require.Zero(t, f.FPS(), "fps should not update before the window elapses")

	f.tick(start.Add(1100 * time.Millisecond))
	require.InDelta(t, 31.0/1.1, f.FPS(), 1.0)

	// Window reset: the next sub-second burst leaves fps unchanged.
	prev := f.FPS()
	f.tick(start.Add(1200 * time.Millisecond))
	require.Equal(t, prev, f.FPS())
}
