package inference

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/config"
)

// Rolling log of raw detections for offline inspection.
var detectionLogger = &lumberjack.Logger{
	Filename:   "detections.log",
	MaxSize:    10, // MB
	MaxBackups: 5,
	MaxAge:     7,    // days
	Compress:   true, // compress old logs
}

// Classes the safety detectors care about. Everything else the model
// reports is discarded at this layer.
var allowedClasses = map[string]bool{
	"person": true,
	"helmet": true,
}

type yoloService struct {
	net     gocv.Net
	labels  []string
	params  config.DetectorParameters
	camera  string
	hasNet  bool
}

// NewYolo loads a YOLOv5 ONNX model through the gocv DNN module.
// WARNING: gocv.Net is not thread-safe, so every camera agent must own
// its own service instance.
func NewYolo(params config.DetectorParameters, camera string) (IService, error) {
	if _, err := os.Stat(params.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no model exists at %s", params.ModelPath)
	}

	labels, err := loadLabels(params.CocoNamesPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(params.ModelPath, "")
	if net.Empty() {
		return nil, fmt.Errorf("error reading model %s", params.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("error setting target: %w", err)
	}

	return &yoloService{
		net:    net,
		labels: labels,
		params: params,
		camera: camera,
		hasNet: true,
	}, nil
}

func (svc *yoloService) Detect(frame gocv.Mat) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(640, 640), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	svc.net.SetInput(blob, "")

	output := svc.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected DNN output dims: %v", dims)
	}

	reshaped := output.Reshape(1, dims[1])
	if reshaped.Empty() || reshaped.Rows() == 0 || reshaped.Cols() < 5 {
		reshaped.Close()
		return nil, fmt.Errorf("reshape failed or invalid dimensions")
	}
	defer reshaped.Close()

	var detections []model.Detection
	for i := 0; i < reshaped.Rows(); i++ {
		row := reshaped.RowRange(i, i+1)
		data, err := row.DataPtrFloat32()
		row.Close()

		if err != nil || data == nil || len(data) < 5 {
			continue
		}

		if data[4] < svc.params.ObjectConfidenceThreshold {
			continue
		}

		if det, ok := svc.extractDetection(frame, data); ok {
			detections = append(detections, det)
		}
	}

	if svc.params.Logging && len(detections) > 0 {
		logDetections(svc.camera, detections)
	}

	return detections, nil
}

func (svc *yoloService) Close() error {
	if !svc.hasNet {
		return nil
	}
	svc.hasNet = false
	return svc.net.Close()
}

func (svc *yoloService) extractDetection(frame gocv.Mat, data []float32) (model.Detection, bool) {
	objectConfidence := data[4] // objectness
	classScores := data[5:]

	if len(classScores) != len(svc.labels) {
		return model.Detection{}, false
	}

	classID := -1
	classConfidence := float32(0.0)
	for j, score := range classScores {
		if !allowedClasses[strings.ToLower(svc.labels[j])] {
			continue
		}
		if score > classConfidence {
			classConfidence = score
			classID = j
		}
	}

	finalConf := objectConfidence * classConfidence
	if classID == -1 || finalConf < svc.params.ConfidenceThreshold {
		return model.Detection{}, false
	}

	// Row layout is normalized center/size coordinates.
	cx := data[0] * float32(frame.Cols())
	cy := data[1] * float32(frame.Rows())
	w := data[2] * float32(frame.Cols())
	h := data[3] * float32(frame.Rows())
	x := int(cx - w/2)
	y := int(cy - h/2)

	return model.Detection{
		Label:      strings.ToLower(svc.labels[classID]),
		Confidence: finalConf,
		Rect:       image.Rect(x, y, x+int(w), y+int(h)),
	}, true
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n"), nil
}

func logDetections(camera string, detections []model.Detection) {
	entry := map[string]interface{}{
		"time":       time.Now().Format(time.RFC3339),
		"camera":     camera,
		"detections": detections,
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = detectionLogger.Write(append(jsonData, '\n'))
}
