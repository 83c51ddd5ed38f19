package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

func grayMat(t *testing.T, shade float64) gocv.Mat {
	t.Helper()
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(shade, shade, shade, 0), 4, 4, gocv.MatTypeCV8UC3)
}

// scriptDevice plays back a fixed sequence of gray frames, then
// reports the device as closed.
type scriptDevice struct {
	shades []float64
	idx    int
	open   bool
}

func newScriptDevice(shades ...float64) *scriptDevice {
	return &scriptDevice{shades: shades, open: true}
}

func (d *scriptDevice) Read(m *gocv.Mat) bool {
	if !d.open || d.idx >= len(d.shades) {
		d.open = false
		return false
	}
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(d.shades[d.idx], 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.CopyTo(m)
	d.idx++
	return true
}

func (d *scriptDevice) IsOpened() bool { return d.open }
func (d *scriptDevice) Close() error   { d.open = false; return nil }

func TestLastFrameBeforeFirstCapture(t *testing.T) {
	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, nil, 0, time.Millisecond)

	_, ok := s.LastFrame()
	require.False(t, ok, "no frame should be available before capture")
}

func TestLatestFrameSemantics(t *testing.T) {
	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, nil, 0, time.Millisecond)

	f1 := grayMat(t, 10)
	s.publish(f1)
	f1.Close()

	f2 := grayMat(t, 20)
	s.publish(f2)
	f2.Close()

	got, ok := s.LastFrame()
	require.True(t, ok)
	defer got.Close()

	// Only the most recent write is observable; F1 is gone.
	require.EqualValues(t, 20, got.GetUCharAt(0, 0))

	// A second read without a new write observes the same frame.
	again, ok := s.LastFrame()
	require.True(t, ok)
	defer again.Close()
	require.EqualValues(t, 20, again.GetUCharAt(0, 0))
}

func TestLastFrameReturnsClone(t *testing.T) {
	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, nil, 0, time.Millisecond)

	f1 := grayMat(t, 30)
	s.publish(f1)
	f1.Close()

	got, ok := s.LastFrame()
	require.True(t, ok)
	got.SetUCharAt(0, 0, 99)
	got.Close()

	// Mutating or closing the returned frame must not affect the slot.
	fresh, ok := s.LastFrame()
	require.True(t, ok)
	defer fresh.Close()
	require.EqualValues(t, 30, fresh.GetUCharAt(0, 0))
}

func TestCaptureFromDevice(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opens := 0
	opener := func() (Device, error) {
		opens++
		if opens > 1 {
			return nil, fmt.Errorf("no more devices")
		}
		return newScriptDevice(10, 20, 30), nil
	}

	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, opener, 0, time.Millisecond)
	s.Start(ctx)

	mat, seq, ok := s.WaitFrame(ctx, 0)
	require.True(t, ok)
	require.NotZero(t, seq)
	mat.Close()
}

func TestSupervisedRestartGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opens := 0
	opener := func() (Device, error) {
		opens++
		return nil, fmt.Errorf("device unreachable")
	}

	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, opener, 2, time.Millisecond)
	s.Start(ctx)

	// With the open failing every time, the source must stop and wake
	// blocked waiters rather than hang.
	_, _, ok := s.WaitFrame(ctx, 0)
	require.False(t, ok)
	require.True(t, s.Degraded())
	// Initial attempt plus maxRetries restarts.
	require.Equal(t, 3, opens)

	stats := s.Stats()
	require.True(t, stats.Degraded)
	require.EqualValues(t, 2, stats.Restarts)
}

func TestWaitFrameCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := NewSource(model.Camera{ID: 0, Name: "cam0"}, nil, 0, time.Millisecond)
	go func() {
		<-ctx.Done()
		s.cond.Broadcast()
	}()

	done := make(chan bool, 1)
	go func() {
		_, _, ok := s.WaitFrame(ctx, 0)
		done <- ok
	}()

	cancel()

	select {
	case ok := <-done:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitFrame did not observe cancellation")
	}
}
