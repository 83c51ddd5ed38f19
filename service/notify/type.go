package notify

import "github.com/sitewatch/ss-go/model"

// IService is the alert notification hook. It is invoked synchronously
// by the alert store after a record has been durably persisted.
type IService interface {
	Notify(cameraID int, kind model.AlertKind, trackID *int, timestamp string) error
}
