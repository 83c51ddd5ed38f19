package alert

import (
	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

// IService is the durable, append-only alert record store.
//
// SaveAlert computes the timestamp at call time, persists the optional
// snapshot frame, inserts one immutable row and then fires the
// notification hook. The hook only runs after a successful insert, so
// every notification corresponds to a persisted record.
type IService interface {
	SaveAlert(cameraID int, kind model.AlertKind, trackID *int, frame *gocv.Mat, details string) (model.Alert, error)
	RecentAlerts(cameraID *int, limit int) ([]model.Alert, error)
	Close() error
}
