package config

// DetectorParameters drives the DNN-based inference service.
type DetectorParameters struct {
	ModelPath                 string
	CocoNamesPath             string
	ConfidenceThreshold       float32
	ObjectConfidenceThreshold float32
	Logging                   bool
}

type IService interface {
	GetModeMaxShutdownTime() int
	GetSettingsFolder() string
	GetCamerasInputFile() string
	GetAlertsDBPath() string
	GetSnapshotsFolder() string
	GetAgentPeriodicTimeout() int
	GetCaptureMaxRetries() int
	GetCaptureBackoffBase() int // milliseconds
	GetAlertedTracksCapacity() int
	GetDisplayQueueDepth() int
	GetWebhookURL() string
	GetDetectorParameters() DetectorParameters
}
