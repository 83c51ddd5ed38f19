package data_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitewatch/ss-go/service/config"
	"github.com/sitewatch/ss-go/service/data"
)

type testConfig struct {
	config.IService
	camerasFile string
}

func (c testConfig) GetCamerasInputFile() string { return c.camerasFile }

const camerasJSON = `[
  {
    "id": 0,
    "name": "gate",
    "rtspUrl": "rtsp://localhost:8554/0",
    "sourceType": "rtsp",
    "zone": [[0, 0], [100, 0], [100, 100], [0, 100]],
    "violations": ["danger_zone", "no_helmet"]
  },
  {
    "id": 1,
    "name": "yard",
    "rtspUrl": "rtsp://localhost:8554/1",
    "sourceType": "rtsp",
    "violations": ["no_helmet"]
  }
]`

func writeCameras(t *testing.T, content string) data.IService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cameras.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return data.NewFilesDB(testConfig{camerasFile: path})
}

func TestRetrieveCameras(t *testing.T) {
	svc := writeCameras(t, camerasJSON)

	cameras, err := svc.RetrieveCameras()
	require.NoError(t, err)
	require.Len(t, cameras, 2)
	require.Equal(t, "gate", cameras[0].Name)
	require.Len(t, cameras[0].Zone, 4)
	require.Equal(t, []string{"no_helmet"}, cameras[1].Violations)
}

func TestRetrieveCameraByID(t *testing.T) {
	svc := writeCameras(t, camerasJSON)

	camera, err := svc.RetrieveCameraByID(1)
	require.NoError(t, err)
	require.Equal(t, "yard", camera.Name)

	_, err = svc.RetrieveCameraByID(42)
	require.Error(t, err)
}

func TestRetrieveCamerasRejectsDegenerateZone(t *testing.T) {
	svc := writeCameras(t, `[
	  {"id": 0, "name": "bad", "zone": [[0, 0], [10, 10], [20, 20]]}
	]`)

	_, err := svc.RetrieveCameras()
	require.Error(t, err, "collinear zone must be rejected")
}

func TestUpdateCameraExcluded(t *testing.T) {
	svc := writeCameras(t, camerasJSON)

	require.NoError(t, svc.UpdateCameraExcluded(0, true))

	camera, err := svc.RetrieveCameraByID(0)
	require.NoError(t, err)
	require.True(t, camera.Excluded)
}

func TestValidateZone(t *testing.T) {
	require.Error(t, data.ValidateZone([][2]int{{0, 0}, {10, 0}}))
	require.Error(t, data.ValidateZone([][2]int{{0, 0}, {5, 5}, {10, 10}}))
	require.NoError(t, data.ValidateZone([][2]int{{0, 0}, {10, 0}, {10, 10}, {0, 10}}))
}
