package storage

import "gocv.io/x/gocv"

// IService persists evidence snapshots. The returned path identifies
// the stored image and is recorded with the alert row.
type IService interface {
	StoreFrame(name string, frame gocv.Mat) (string, error)
}
