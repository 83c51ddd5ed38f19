package notify

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/sitewatch/ss-go/model"
)

type consoleService struct {
}

func NewConsole() IService {
	return &consoleService{}
}

func (svc *consoleService) Notify(cameraID int, kind model.AlertKind, trackID *int, timestamp string) error {
	track := "n/a"
	if trackID != nil {
		track = fmt.Sprintf("%d", *trackID)
	}

	var message string
	switch kind {
	case model.AlertDangerZone:
		message = fmt.Sprintf("DANGER ZONE BREACH - Camera %d, Track ID %s", cameraID, track)
	case model.AlertNoHelmet:
		message = fmt.Sprintf("NO HELMET DETECTED - Camera %d, Track ID %s", cameraID, track)
	default:
		message = fmt.Sprintf("Alert from Camera %d", cameraID)
	}

	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	color.New(color.FgRed, color.Bold).Printf("ALERT: %s\n", message)
	fmt.Printf("Time: %s\n", timestamp)
	fmt.Println(rule)

	return nil
}
