package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sitewatch/ss-go/model"
)

type webhookService struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) IService {
	return &webhookService{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (svc *webhookService) Notify(cameraID int, kind model.AlertKind, trackID *int, timestamp string) error {
	payload := map[string]interface{}{
		"cameraId":  cameraID,
		"alertType": string(kind),
		"trackId":   trackID,
		"timestamp": timestamp,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := svc.client.Post(svc.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Multi fans one notification out to several hooks. The first failure
// is returned but later hooks still run.
type Multi []IService

func (m Multi) Notify(cameraID int, kind model.AlertKind, trackID *int, timestamp string) error {
	var firstErr error
	for _, svc := range m {
		if err := svc.Notify(cameraID, kind, trackID, timestamp); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
