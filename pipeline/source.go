package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/lgr"
)

// A run of failed reads this long means the device is in trouble and
// the supervisor should reopen it.
const maxConsecutiveMisreads = 30

var (
	errDeviceClosed = errors.New("device closed")
	errMisreads     = errors.New("too many consecutive read failures")
)

// Source owns one camera's capture loop and a single latest-frame
// slot. The capture goroutine continuously overwrites the slot; no
// history is kept, so readers may repeat or skip frames depending on
// relative rates. New-frame arrival is signalled through a condition
// variable so consumers can wait without busy-polling.
type Source struct {
	camera      model.Camera
	open        DeviceOpener
	maxRetries  int
	backoffBase time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	last     gocv.Mat
	hasFrame bool
	seq      uint64
	stopped  bool

	frames   int64
	errors   int64
	restarts int64
	degraded bool
}

func NewSource(camera model.Camera, open DeviceOpener, maxRetries int, backoffBase time.Duration) *Source {
	s := &Source{
		camera:      camera,
		open:        open,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the supervised capture goroutine. It returns
// immediately; frame availability is observable via LastFrame and
// WaitFrame.
func (s *Source) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.cond.Broadcast()
	}()
	go s.supervise(ctx)
}

// supervise reopens the device with exponential backoff after capture
// failures. After maxRetries consecutive failures the camera is marked
// degraded and capture stops; other cameras are unaffected.
func (s *Source) supervise(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.stopped = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	retries := 0
	for {
		if ctx.Err() != nil {
			return
		}

		dev, err := s.open()
		if err == nil {
			before := s.frameCount()
			err = s.capture(ctx, dev)
			dev.Close()
			if err == nil {
				// Context cancelled mid-capture.
				return
			}
			if s.frameCount() > before {
				// The device produced frames this spell, so the failure
				// is fresh. Restart the retry budget.
				retries = 0
			}
		}

		lgr.Logger.Warn(
			"capture attempt failed",
			slog.String("camera", s.camera.Name),
			lgr.ErrAttr(err),
		)

		retries++
		if retries > s.maxRetries {
			s.mu.Lock()
			s.degraded = true
			s.mu.Unlock()
			lgr.Logger.Error(
				"camera degraded, capture stopped",
				slog.String("camera", s.camera.Name),
				slog.Int("retries", retries-1),
			)
			return
		}

		s.mu.Lock()
		s.restarts++
		s.mu.Unlock()

		backoff := s.backoffBase << (retries - 1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

// capture reads frames until the device closes, read failures pile up
// or ctx is cancelled (nil return).
func (s *Source) capture(ctx context.Context, dev Device) error {
	img := gocv.NewMat()
	defer img.Close()

	misreads := 0
	for dev.IsOpened() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if ok := dev.Read(&img); !ok || img.Empty() {
			// A failed single read is indistinguishable from "no new
			// frame yet"; the previous frame stays in the slot.
			s.mu.Lock()
			s.errors++
			s.mu.Unlock()

			misreads++
			if misreads > maxConsecutiveMisreads {
				return errMisreads
			}
			continue
		}

		misreads = 0
		s.publish(img)
	}

	return errDeviceClosed
}

func (s *Source) publish(img gocv.Mat) {
	s.mu.Lock()
	if s.hasFrame {
		s.last.Close()
	}
	s.last = img.Clone()
	s.hasFrame = true
	s.seq++
	s.frames++
	s.cond.Broadcast()
	s.mu.Unlock()
}

// LastFrame returns a clone of the most recently captured frame, or
// ok=false if capture has not yet produced one. Callers own the clone.
func (s *Source) LastFrame() (gocv.Mat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasFrame {
		return gocv.Mat{}, false
	}
	return s.last.Clone(), true
}

// WaitFrame blocks until a frame newer than afterSeq is in the slot,
// then returns a clone and its sequence number. ok=false means the
// source stopped or ctx was cancelled before a newer frame arrived.
func (s *Source) WaitFrame(ctx context.Context, afterSeq uint64) (gocv.Mat, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for (!s.hasFrame || s.seq <= afterSeq) && !s.stopped && ctx.Err() == nil {
		s.cond.Wait()
	}

	if !s.hasFrame || s.seq <= afterSeq {
		return gocv.Mat{}, afterSeq, false
	}
	return s.last.Clone(), s.seq, true
}

func (s *Source) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *Source) Stats() model.SourceStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.SourceStats{
		Camera:    s.camera.Name,
		Frames:    s.frames,
		Errors:    s.errors,
		Restarts:  s.restarts,
		Degraded:  s.degraded,
		Timestamp: time.Now().Unix(),
	}
}

func (s *Source) frameCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
