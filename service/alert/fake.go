package alert

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

// fakeService is an in-memory store used by tests and by callers that
// do not need durability. It honors the same ordering and filtering
// contract as the SQLite store but never touches disk.
type fakeService struct {
	mu     sync.Mutex
	nextID int64
	saved  []model.Alert
}

func NewFake() IService {
	return &fakeService{
		nextID: 1,
	}
}

func (svc *fakeService) SaveAlert(cameraID int, kind model.AlertKind, trackID *int, _ *gocv.Mat, details string) (model.Alert, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	a := model.Alert{
		ID:        svc.nextID,
		CameraID:  cameraID,
		Kind:      kind,
		TrackID:   trackID,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if details != "" {
		a.Details = &details
	}

	svc.nextID++
	svc.saved = append(svc.saved, a)
	return a, nil
}

func (svc *fakeService) RecentAlerts(cameraID *int, limit int) ([]model.Alert, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var alerts []model.Alert
	for i := len(svc.saved) - 1; i >= 0 && len(alerts) < limit; i-- {
		if cameraID != nil && svc.saved[i].CameraID != *cameraID {
			continue
		}
		alerts = append(alerts, svc.saved[i])
	}
	return alerts, nil
}

func (svc *fakeService) Close() error {
	return nil
}
