package config

import (
	"fmt"
	"os"
	"strconv"
)

// envService reads settings from environment variables with sensible
// defaults. Env vars are loaded from a .env file by main in dev mode.
type envService struct {
}

func NewEnv() IService {
	return &envService{}
}

func (svc *envService) GetModeMaxShutdownTime() int {
	return envInt("MODE_MAX_SHUTDOWN_TIME", 5)
}

func (svc *envService) GetSettingsFolder() string {
	return envStr("SETTINGS_FOLDER", "./settings")
}

func (svc *envService) GetCamerasInputFile() string {
	return fmt.Sprintf("%s/cameras.json", svc.GetSettingsFolder())
}

func (svc *envService) GetAlertsDBPath() string {
	return envStr("ALERTS_DB_PATH", "./alerts/alerts.db")
}

func (svc *envService) GetSnapshotsFolder() string {
	return envStr("SNAPSHOTS_FOLDER", "./alerts/snapshots")
}

func (svc *envService) GetAgentPeriodicTimeout() int {
	return envInt("AGENT_PERIODIC_TIMEOUT", 30)
}

func (svc *envService) GetCaptureMaxRetries() int {
	return envInt("CAPTURE_MAX_RETRIES", 5)
}

func (svc *envService) GetCaptureBackoffBase() int {
	return envInt("CAPTURE_BACKOFF_BASE_MS", 500)
}

func (svc *envService) GetAlertedTracksCapacity() int {
	return envInt("ALERTED_TRACKS_CAPACITY", 4096)
}

func (svc *envService) GetDisplayQueueDepth() int {
	return envInt("DISPLAY_QUEUE_DEPTH", 4)
}

func (svc *envService) GetWebhookURL() string {
	return envStr("ALERT_WEBHOOK_URL", "")
}

func (svc *envService) GetDetectorParameters() DetectorParameters {
	return DetectorParameters{
		ModelPath:                 envStr("DETECTOR_MODEL_PATH", "./yolo5/yolov5s.onnx"),
		CocoNamesPath:             envStr("DETECTOR_NAMES_PATH", "./yolo5/coco.names"),
		ConfidenceThreshold:       envFloat("DETECTOR_CONFIDENCE_THRESHOLD", 0.7),
		ObjectConfidenceThreshold: envFloat("DETECTOR_OBJECT_CONFIDENCE_THRESHOLD", 0.5),
		Logging:                   envStr("DETECTOR_LOGGING", "") == "true",
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return def
	}
	return float32(f)
}
