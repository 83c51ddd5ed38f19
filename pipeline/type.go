package pipeline

import (
	"time"

	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/alert"
	"github.com/sitewatch/ss-go/service/config"
	"github.com/sitewatch/ss-go/service/data"
	"github.com/sitewatch/ss-go/service/inference"
)

type FrameData struct {
	Mat       gocv.Mat
	Timestamp time.Time
}

// ServicesFactory carries the services an agent needs. InferenceFactory
// builds a per-camera detector instance because DNN nets are not safe
// to share across agents.
type ServicesFactory struct {
	CfgSvc           config.IService
	DataSvc          data.IService
	AlertSvc         alert.IService
	InferenceFactory func(camera model.Camera) (inference.IService, error)
}
