package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gocv.io/x/gocv"
	"golang.org/x/xerrors"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/pipeline"
	"github.com/sitewatch/ss-go/service/alert"
	"github.com/sitewatch/ss-go/service/config"
	"github.com/sitewatch/ss-go/service/data"
	"github.com/sitewatch/ss-go/service/inference"
	"github.com/sitewatch/ss-go/service/lgr"
	"github.com/sitewatch/ss-go/service/notify"
	"github.com/sitewatch/ss-go/service/storage"
)

const (
	// WARNING: this has to be bigger than the agents' shutdown time
	waitOnShutdown = 8 * time.Second
)

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
		}
	}

	// Config service
	cfgSvc := config.NewEnv()
	// Data service (camera registry with zones)
	dataSvc := data.NewFilesDB(cfgSvc)
	// Snapshot storage service
	storageSvc := storage.NewDisk(cfgSvc.GetSnapshotsFolder())
	// Notification hooks: console always, webhook when configured
	notifier := notify.Multi{notify.NewConsole()}
	if url := cfgSvc.GetWebhookURL(); url != "" {
		notifier = append(notifier, notify.NewWebhook(url))
	}
	// Alert store
	alertSvc, err := alert.NewSQLite(cfgSvc.GetAlertsDBPath(), storageSvc, notifier)
	if err != nil {
		lgr.Logger.Error("error opening alert store", lgr.ErrAttr(err))
		panic("error opening alert store")
	}
	defer alertSvc.Close()

	svcs := pipeline.ServicesFactory{
		CfgSvc:   cfgSvc,
		DataSvc:  dataSvc,
		AlertSvc: alertSvc,
		// DNN nets are not thread-safe, so each agent gets its own
		// tracked detector instance.
		InferenceFactory: func(camera model.Camera) (inference.IService, error) {
			inner, err := inference.NewYolo(cfgSvc.GetDetectorParameters(), camera.Name)
			if err != nil {
				return nil, err
			}
			return inference.NewTracked(inner), nil
		},
	}

	cameras, err := dataSvc.RetrieveCameras()
	if err != nil {
		lgr.Logger.Error("error retrieving cameras", lgr.ErrAttr(err))
		panic("error retrieving cameras")
	}

	errorStream := make(chan interface{}, 10)
	statsStream := make(chan interface{}, 10)
	display := pipeline.NewDisplay(cfgSvc.GetDisplayQueueDepth())

	go display.Run(canxCtx, renderFunc())

	// Launch one agent per camera. Uniqueness of camera ids is enforced
	// by construction; a duplicate id is a configuration bug.
	agentResults := make(chan error, len(cameras))
	launched := map[int]string{}
	running := 0
	for _, camera := range cameras {
		if camera.Excluded {
			continue
		}
		if prev, ok := launched[camera.ID]; ok {
			lgr.Logger.Error(
				"duplicate camera id in configuration",
				slog.Int("id", camera.ID),
				slog.String("first", prev),
				slog.String("second", camera.Name),
			)
			panic("duplicate camera id in configuration")
		}
		launched[camera.ID] = camera.Name

		camera := camera
		running++
		go func() {
			agentResults <- pipeline.Agent(canxCtx, svcs, camera, errorStream, statsStream, display)
		}()
	}

	lgr.Logger.Info("agents launched", slog.Int("count", running))

	// Wait for cancellation, agent exits, stats or errors
	for running > 0 {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info("main context cancelled")
			goto resume

		case err := <-agentResults:
			running--
			if err != nil {
				// One camera's failure must not stop the others.
				lgr.Logger.Error("agent exited with error", lgr.ErrAttr(err))
			}

		case e := <-errorStream:
			procError(e)

		case s := <-statsStream:
			lgr.Logger.Info("stats", slog.Any("stats", s))
		}
	}

resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		canxFn()
	}

	lgr.Logger.Info("main is waiting for all go routines to exit")

	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			lgr.Logger.Info(
				"shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)
			return

		case err := <-agentResults:
			if err != nil {
				lgr.Logger.Error("agent exited with error", lgr.ErrAttr(err))
			}

		case e := <-errorStream:
			procError(e)

		case s := <-statsStream:
			lgr.Logger.Info("stats", slog.Any("stats", s))
		}
	}
}

func procError(e interface{}) {
	switch err := e.(type) {
	case model.CustomError:
		lgr.Logger.Error(
			"pipeline error",
			slog.String("processor", err.Processor),
			slog.String("message", err.Message),
			slog.Any("misc", err.Misc),
		)
	default:
		lgr.Logger.Error("pipeline error", slog.Any("error", e))
	}
}

// renderFunc returns the frame renderer for the single display
// goroutine, or nil when on-screen windows are disabled. Windows are
// created lazily inside the render goroutine because the windowing
// layer must be driven from one goroutine only.
func renderFunc() pipeline.RenderFunc {
	if os.Getenv("SHOW_WINDOWS") != "true" {
		return nil
	}

	windows := map[int]*gocv.Window{}
	return func(cameraID int, frame gocv.Mat) {
		w, ok := windows[cameraID]
		if !ok {
			w = gocv.NewWindow(fmt.Sprintf("Camera %d", cameraID))
			windows[cameraID] = w
		}
		w.IMShow(frame)
		w.WaitKey(1)
	}
}
