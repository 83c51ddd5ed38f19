package inference

import (
	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

// fakeService replays a scripted sequence of per-frame detections.
// Once the script is exhausted it keeps returning the last entry.
type fakeService struct {
	script [][]model.Detection
	cursor int
}

func NewFake(script ...[]model.Detection) IService {
	return &fakeService{
		script: script,
	}
}

func (svc *fakeService) Detect(_ gocv.Mat) ([]model.Detection, error) {
	if len(svc.script) == 0 {
		return nil, nil
	}

	dets := svc.script[svc.cursor]
	if svc.cursor < len(svc.script)-1 {
		svc.cursor++
	}
	return dets, nil
}

func (svc *fakeService) Close() error {
	return nil
}
