package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/stat"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/lgr"
)

var infoColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

// Agent runs one camera's pipeline: capture -> feed -> inference ->
// violation checks -> display hand-off. It returns when the context is
// cancelled or the camera's capture degrades; one camera's failure
// never takes down another agent.
func Agent(canxCtx context.Context,
	svcs ServicesFactory,
	camera model.Camera,
	errorStream chan interface{},
	statsStream chan interface{},
	display *Display) error {
	agentID := uuid.NewString()
	lgr.Logger.Info(
		"agent starting....",
		slog.String("agentID", agentID),
		slog.String("camera", camera.Name),
		slog.String("sourceType", camera.SourceType),
		slog.String("rtsp", camera.RtspURL),
		slog.Any("violations", camera.Violations),
	)

	infSvc, err := svcs.InferenceFactory(camera)
	if err != nil {
		return fmt.Errorf("error creating inference service for camera %s: %w", camera.Name, err)
	}
	defer infSvc.Close()

	// Violation detectors active for this camera. Each detector
	// instance belongs to this agent only; see the dedup-set contract.
	capacity := svcs.CfgSvc.GetAlertedTracksCapacity()
	var zoneDet *DangerZoneDetector
	var helmetDet *NoHelmetDetector
	for _, v := range camera.Violations {
		switch model.AlertKind(v) {
		case model.AlertDangerZone:
			zoneDet, err = NewDangerZoneDetector(camera, svcs.AlertSvc, capacity)
			if err != nil {
				return err
			}
			defer zoneDet.Close()
		case model.AlertNoHelmet:
			helmetDet = NewNoHelmetDetector(camera, svcs.AlertSvc, capacity)
		default:
			lgr.Logger.Warn(
				"unknown violation kind, skipping",
				slog.String("camera", camera.Name),
				slog.String("kind", v),
			)
		}
	}

	source := NewSource(camera, CameraDeviceOpener(camera),
		svcs.CfgSvc.GetCaptureMaxRetries(),
		time.Duration(svcs.CfgSvc.GetCaptureBackoffBase())*time.Millisecond)
	source.Start(canxCtx)
	feed := NewFeed(source)

	agentStartTime := time.Now().Unix()
	frames := 0
	errors := 0
	var procTimes []float64
	lastStats := time.Now()
	statsEvery := time.Duration(svcs.CfgSvc.GetAgentPeriodicTimeout()) * time.Second

	for {
		frame, ok := feed.Next(canxCtx)
		if !ok {
			if source.Degraded() {
				errorStream <- model.GenError("agent",
					fmt.Errorf("capture gave up after repeated failures"),
					map[string]interface{}{"camera": camera.Name},
					"camera %s degraded, agent exiting", camera.Name)
				return nil
			}
			lgr.Logger.Info(
				"agent context cancelled",
				slog.String("agentID", agentID),
				slog.String("camera", camera.Name),
			)
			return nil
		}

		started := time.Now()
		dets, err := infSvc.Detect(frame)
		if err != nil {
			errors++
			errorStream <- model.GenError("agent",
				err,
				map[string]interface{}{"camera": camera.Name},
				"inference error on camera %s", camera.Name)
			frame.Close()
			continue
		}

		if zoneDet != nil {
			zoneDet.CheckZone(dets, &frame)
		}
		if helmetDet != nil {
			helmetDet.CheckHelmet(dets, &frame)
		}

		gocv.PutText(&frame, fmt.Sprintf("Camera %d | FPS: %.2f", camera.ID, feed.FPS()),
			image.Pt(10, 30), gocv.FontHersheySimplex, 1, infoColor, 2)

		if display != nil {
			display.Submit(camera.ID, frame)
		} else {
			frame.Close()
		}

		frames++
		procTimes = append(procTimes, time.Since(started).Seconds())

		if time.Since(lastStats) >= statsEvery {
			stats := model.StreamerStats{
				Name:        "violationAgent",
				Camera:      camera.Name,
				FPS:         feed.FPS(),
				Frames:      frames,
				Errors:      errors,
				Uptime:      time.Now().Unix() - agentStartTime,
				AvgProcTime: stat.Mean(procTimes, nil),
				Timestamp:   time.Now().Unix(),
			}
			if len(procTimes) > 1 {
				stats.StdDevProcTime = stat.StdDev(procTimes, nil)
			}

			select {
			case statsStream <- stats:
			default:
				lgr.Logger.Warn("statsStream full, dropping stats")
			}

			procTimes = procTimes[:0]
			lastStats = time.Now()
		}
	}
}
