package inference

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

const (
	trackerIoUThreshold = 0.3
	trackerMaxMisses    = 30
)

type track struct {
	id     int
	label  string
	rect   image.Rectangle
	misses int
}

// trackedService decorates a detector with greedy IoU-based track
// association so detections carry persistent track ids. A track id
// stays stable as long as the object overlaps its previous position
// frame over frame; tracks unseen for trackerMaxMisses frames expire.
type trackedService struct {
	inner  IService
	nextID int
	tracks []*track
}

func NewTracked(inner IService) IService {
	return &trackedService{
		inner:  inner,
		nextID: 1,
	}
}

func (svc *trackedService) Detect(frame gocv.Mat) ([]model.Detection, error) {
	dets, err := svc.inner.Detect(frame)
	if err != nil {
		return nil, err
	}

	claimed := make(map[int]bool, len(svc.tracks))

	for i := range dets {
		bestIdx := -1
		bestIoU := trackerIoUThreshold

		for j, tr := range svc.tracks {
			if claimed[j] || tr.label != dets[i].Label {
				continue
			}
			if v := iou(tr.rect, dets[i].Rect); v >= bestIoU {
				bestIoU = v
				bestIdx = j
			}
		}

		if bestIdx >= 0 {
			claimed[bestIdx] = true
			tr := svc.tracks[bestIdx]
			tr.rect = dets[i].Rect
			tr.misses = 0
			id := tr.id
			dets[i].TrackID = &id
			continue
		}

		// Unmatched detection starts a new track.
		tr := &track{
			id:    svc.nextID,
			label: dets[i].Label,
			rect:  dets[i].Rect,
		}
		svc.nextID++
		svc.tracks = append(svc.tracks, tr)
		claimed[len(svc.tracks)-1] = true
		id := tr.id
		dets[i].TrackID = &id
	}

	// Age out tracks that went unmatched.
	alive := svc.tracks[:0]
	for j, tr := range svc.tracks {
		if !claimed[j] {
			tr.misses++
		}
		if tr.misses <= trackerMaxMisses {
			alive = append(alive, tr)
		}
	}
	svc.tracks = alive

	return dets, nil
}

func (svc *trackedService) Close() error {
	return svc.inner.Close()
}

func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
