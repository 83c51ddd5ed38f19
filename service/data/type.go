package data

import "github.com/sitewatch/ss-go/model"

type IService interface {
	RetrieveCameras() ([]model.Camera, error)
	RetrieveCameraByID(id int) (model.Camera, error)
	UpdateCameraExcluded(id int, excluded bool) error
}
