package model

import (
	"fmt"
	"image"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// AlertKind is the violation category persisted with each alert.
type AlertKind string

const (
	AlertDangerZone AlertKind = "danger_zone"
	AlertNoHelmet   AlertKind = "no_helmet"
)

type Camera struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	RtspURL    string   `json:"rtspUrl"`
	SourceType string   `json:"sourceType"` // rtsp or synthetic
	Zone       [][2]int `json:"zone"`       // danger zone polygon, >= 3 vertices
	Violations []string `json:"violations"` // active violation kinds
	Excluded   bool     `json:"excluded"`
}

// ZonePoints converts the configured polygon into image points.
func (c Camera) ZonePoints() []image.Point {
	pts := make([]image.Point, 0, len(c.Zone))
	for _, v := range c.Zone {
		pts = append(pts, image.Pt(v[0], v[1]))
	}
	return pts
}

// Detection is one object instance reported by the detector/tracker
// collaborator for a single frame. TrackID is nil when the tracker
// could not associate the object with a prior track.
type Detection struct {
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	Rect       image.Rectangle `json:"rect"`
	TrackID    *int            `json:"trackId,omitempty"`
}

// Center returns the bounding box center point.
func (d Detection) Center() image.Point {
	return image.Pt((d.Rect.Min.X+d.Rect.Max.X)/2, (d.Rect.Min.Y+d.Rect.Max.Y)/2)
}

// Alert is one persisted violation record. Immutable once written.
type Alert struct {
	ID           int64     `json:"id"`
	CameraID     int       `json:"cameraId"`
	Kind         AlertKind `json:"alertType"`
	TrackID      *int      `json:"trackId,omitempty"`
	Timestamp    string    `json:"timestamp"` // ISO-8601
	SnapshotPath *string   `json:"snapshotPath,omitempty"`
	Details      *string   `json:"details,omitempty"`
}

type SourceStats struct {
	Camera    string `json:"camera"`
	Frames    int64  `json:"frames"`
	Errors    int64  `json:"errors"`
	Restarts  int64  `json:"restarts"`
	Degraded  bool   `json:"degraded"`
	Timestamp int64  `json:"timestamp"`
}

type StreamerStats struct {
	Name           string  `json:"name"`
	Camera         string  `json:"camera"`
	FPS            float64 `json:"fps"`
	Frames         int     `json:"frames"`
	Errors         int     `json:"errors"`
	Uptime         int64   `json:"uptime"`
	AvgProcTime    float64 `json:"avgProcTime"`
	StdDevProcTime float64 `json:"stdDevProcTime"`
	Timestamp      int64   `json:"timestamp"`
}

type AgentStats struct {
	ID        string `json:"id"`     // Agent ID
	Camera    string `json:"camera"` // Camera name
	Uptime    int64  `json:"uptime"` // Uptime of the agent
	Timestamp int64  `json:"timestamp"`
}
