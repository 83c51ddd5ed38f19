package inference

import (
	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

// IService is the object detector/tracker collaborator. Implementations
// are not required to be safe for concurrent use; each camera agent
// owns its own instance.
type IService interface {
	Detect(frame gocv.Mat) ([]model.Detection, error)
	Close() error
}
