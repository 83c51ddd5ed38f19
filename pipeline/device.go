package pipeline

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

// Device is the raw-frame source collaborator. gocv.VideoCapture
// satisfies it directly.
type Device interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// DeviceOpener opens a fresh device handle. The capture supervisor
// calls it again after a device failure.
type DeviceOpener func() (Device, error)

// CameraDeviceOpener picks the opener for a configured camera.
func CameraDeviceOpener(camera model.Camera) DeviceOpener {
	if camera.SourceType == "synthetic" {
		return func() (Device, error) {
			return NewSyntheticDevice(640, 480, 30), nil
		}
	}
	return func() (Device, error) {
		return gocv.OpenVideoCapture(camera.RtspURL)
	}
}

// SyntheticDevice generates solid-color frames at a fixed rate. Used
// for dev runs and tests where no RTSP feed is available.
type SyntheticDevice struct {
	cols     int
	rows     int
	interval time.Duration

	mu     sync.Mutex
	open   bool
	frames int
}

func NewSyntheticDevice(cols, rows, fps int) *SyntheticDevice {
	if fps <= 0 {
		fps = 30
	}
	return &SyntheticDevice{
		cols:     cols,
		rows:     rows,
		interval: time.Second / time.Duration(fps),
		open:     true,
	}
}

func (d *SyntheticDevice) Read(m *gocv.Mat) bool {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return false
	}
	d.frames++
	shade := float64(d.frames % 256)
	d.mu.Unlock()

	time.Sleep(d.interval)

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(shade, shade, shade, 0), d.rows, d.cols, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.CopyTo(m)
	return true
}

func (d *SyntheticDevice) IsOpened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *SyntheticDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}
