package pipeline

import (
	"image"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/alert"
	"github.com/sitewatch/ss-go/service/lgr"
)

// NoHelmetDetector raises a no_helmet alert the first time a tracked
// person is seen without a helmet covering their head region. The
// helmet/person association is a per-frame geometric heuristic; there
// is no cross-frame helmet tracking. Same single-agent ownership rule
// as DangerZoneDetector.
type NoHelmetDetector struct {
	camera   model.Camera
	alertSvc alert.IService
	alerted  *alertedSet
}

func NewNoHelmetDetector(camera model.Camera, alertSvc alert.IService, dedupeCapacity int) *NoHelmetDetector {
	return &NoHelmetDetector{
		camera:   camera,
		alertSvc: alertSvc,
		alerted:  newAlertedSet(dedupeCapacity),
	}
}

// CheckHelmet annotates unhelmeted persons on the frame and persists
// at most one alert per track id.
func (d *NoHelmetDetector) CheckHelmet(detections []model.Detection, frame *gocv.Mat) {
	var persons, helmets []model.Detection
	for _, det := range detections {
		switch det.Label {
		case "person":
			persons = append(persons, det)
		case "helmet":
			helmets = append(helmets, det)
		}
	}

	for _, person := range persons {
		covered := false
		for _, helmet := range helmets {
			if helmetCovers(person.Rect, helmet.Rect) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}

		gocv.Rectangle(frame, person.Rect, dangerColor, 3)
		gocv.PutText(frame, "NO HELMET!", image.Pt(person.Rect.Min.X, person.Rect.Min.Y-10),
			gocv.FontHersheySimplex, 0.9, dangerColor, 2)

		if person.TrackID == nil || d.alerted.Has(*person.TrackID) {
			continue
		}

		if _, err := d.alertSvc.SaveAlert(d.camera.ID, model.AlertNoHelmet, person.TrackID, frame, "Person without helmet detected"); err != nil {
			lgr.Logger.Error(
				"error saving no helmet alert",
				slog.Int("camera", d.camera.ID),
				lgr.ErrAttr(err),
			)
			continue
		}
		d.alerted.Add(*person.TrackID)
	}
}

// helmetCovers reports whether the helmet box overlaps the person box
// horizontally and straddles the upper 30% line of the person box,
// i.e. helmet bottom below the person top and helmet top above
// personTop + 0.3*height.
func helmetCovers(person, helmet image.Rectangle) bool {
	headLine := float64(person.Min.Y) + 0.3*float64(person.Dy())
	return helmet.Min.X < person.Max.X &&
		helmet.Max.X > person.Min.X &&
		float64(helmet.Min.Y) < headLine &&
		helmet.Max.Y > person.Min.Y
}
