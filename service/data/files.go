package data

import (
	"encoding/json"
	"fmt"
	"os"

	clipper "github.com/ctessum/go.clipper"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/config"
)

type filesDBService struct {
	CfgSvc config.IService
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) RetrieveCameras() ([]model.Camera, error) {
	cameras := []model.Camera{}

	input := svc.CfgSvc.GetCamerasInputFile()
	data, err := os.ReadFile(input)
	if err != nil {
		return cameras, err
	}

	err = json.Unmarshal(data, &cameras)
	if err != nil {
		return cameras, err
	}

	for _, camera := range cameras {
		if len(camera.Zone) == 0 {
			continue
		}
		if err := ValidateZone(camera.Zone); err != nil {
			return nil, fmt.Errorf("camera %d zone: %w", camera.ID, err)
		}
	}

	return cameras, nil
}

func (svc *filesDBService) RetrieveCameraByID(id int) (model.Camera, error) {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return model.Camera{}, err
	}

	for _, camera := range cameras {
		if camera.ID == id {
			return camera, nil
		}
	}

	return model.Camera{}, fmt.Errorf("camera %d not found", id)
}

func (svc *filesDBService) UpdateCameraExcluded(id int, excluded bool) error {
	cameras, err := svc.RetrieveCameras()
	if err != nil {
		return err
	}

	for i, camera := range cameras {
		if camera.ID == id {
			cameras[i].Excluded = excluded
			break
		}
	}

	data, err := json.MarshalIndent(cameras, "", "  ")
	if err != nil {
		return err
	}

	output := svc.CfgSvc.GetCamerasInputFile()
	// Write the JSON data to the file (with truncation)
	return os.WriteFile(output, data, 0644)
}

// ValidateZone rejects polygons that cannot bound a region: fewer than
// three vertices or zero enclosed area (collinear/duplicate points).
func ValidateZone(zone [][2]int) error {
	if len(zone) < 3 {
		return fmt.Errorf("zone polygon needs at least 3 points, got %d", len(zone))
	}

	path := make(clipper.Path, 0, len(zone))
	for _, v := range zone {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(v[0]), Y: clipper.CInt(v[1])})
	}

	if clipper.Area(path) == 0 {
		return fmt.Errorf("zone polygon is degenerate (zero area)")
	}

	return nil
}
