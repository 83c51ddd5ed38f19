package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/alert"
	"github.com/sitewatch/ss-go/service/lgr"
)

var dangerColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// DangerZoneDetector raises a danger_zone alert the first time a
// tracked person's bounding-box center enters the configured polygon.
// One instance serves one camera and must not be shared across agents;
// the dedup set is unsynchronized on purpose.
type DangerZoneDetector struct {
	camera   model.Camera
	alertSvc alert.IService
	zoneFill gocv.PointsVector
	zoneFlat gocv.PointVector
	alerted  *alertedSet
}

func NewDangerZoneDetector(camera model.Camera, alertSvc alert.IService, dedupeCapacity int) (*DangerZoneDetector, error) {
	pts := camera.ZonePoints()
	if len(pts) < 3 {
		return nil, fmt.Errorf("camera %d: zone polygon needs at least 3 points, got %d", camera.ID, len(pts))
	}

	return &DangerZoneDetector{
		camera:   camera,
		alertSvc: alertSvc,
		zoneFill: gocv.NewPointsVectorFromPoints([][]image.Point{pts}),
		zoneFlat: gocv.NewPointVectorFromPoints(pts),
		alerted:  newAlertedSet(dedupeCapacity),
	}, nil
}

// Close releases the native polygon vectors.
func (d *DangerZoneDetector) Close() {
	d.zoneFill.Close()
	d.zoneFlat.Close()
}

// CheckZone annotates frame in place with the zone overlay and person
// markers, and persists at most one alert per track id. Detections
// without a track id are flagged visually but never alerted: they
// cannot be deduplicated, so alerting would spam every frame.
func (d *DangerZoneDetector) CheckZone(detections []model.Detection, frame *gocv.Mat) {
	// Semi-transparent zone fill plus outline.
	overlay := frame.Clone()
	gocv.FillPoly(&overlay, d.zoneFill, dangerColor)
	gocv.AddWeighted(*frame, 0.7, overlay, 0.3, 0, frame)
	overlay.Close()
	gocv.Polylines(frame, d.zoneFill, true, dangerColor, 3)

	for _, det := range detections {
		if det.Label != "person" {
			continue
		}

		center := det.Center()
		// Zero distance means on the boundary, which counts as inside.
		if gocv.PointPolygonTest(d.zoneFlat, center, false) < 0 {
			continue
		}

		gocv.Circle(frame, center, 10, dangerColor, -1)
		gocv.PutText(frame, "DANGER!", image.Pt(det.Rect.Min.X, det.Rect.Min.Y-10),
			gocv.FontHersheySimplex, 0.9, dangerColor, 2)

		if det.TrackID == nil || d.alerted.Has(*det.TrackID) {
			continue
		}

		details := fmt.Sprintf("Person entered danger zone at (%d, %d)", center.X, center.Y)
		if _, err := d.alertSvc.SaveAlert(d.camera.ID, model.AlertDangerZone, det.TrackID, frame, details); err != nil {
			lgr.Logger.Error(
				"error saving danger zone alert",
				slog.Int("camera", d.camera.ID),
				lgr.ErrAttr(err),
			)
			// Not marked as alerted, so the next sighting retries.
			continue
		}
		d.alerted.Add(*det.TrackID)
	}
}
