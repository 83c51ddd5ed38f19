package alert

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
	_ "modernc.org/sqlite"

	"github.com/sitewatch/ss-go/model"
	"github.com/sitewatch/ss-go/service/notify"
	"github.com/sitewatch/ss-go/service/storage"
)

type sqliteService struct {
	db         *sql.DB
	storageSvc storage.IService
	notifySvc  notify.IService
}

// NewSQLite opens (or creates) the alert database at path and returns
// a store that writes snapshots through storageSvc and invokes
// notifySvc after each durable insert. notifySvc may be nil.
func NewSQLite(path string, storageSvc storage.IService, notifySvc notify.IService) (IService, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			camera_id INTEGER NOT NULL,
			alert_type TEXT NOT NULL,
			track_id INTEGER,
			timestamp TEXT NOT NULL,
			snapshot_path TEXT,
			details TEXT
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteService{
		db:         db,
		storageSvc: storageSvc,
		notifySvc:  notifySvc,
	}, nil
}

func (svc *sqliteService) SaveAlert(cameraID int, kind model.AlertKind, trackID *int, frame *gocv.Mat, details string) (model.Alert, error) {
	timestamp := time.Now().Format(time.RFC3339)

	var snapshotPath sql.NullString
	if frame != nil && !frame.Empty() {
		name := snapshotName(cameraID, kind, trackID, timestamp)
		path, err := svc.storageSvc.StoreFrame(name, *frame)
		if err != nil {
			return model.Alert{}, fmt.Errorf("error storing snapshot: %w", err)
		}
		snapshotPath = sql.NullString{String: path, Valid: true}
	}

	var trackVal sql.NullInt64
	if trackID != nil {
		trackVal = sql.NullInt64{Int64: int64(*trackID), Valid: true}
	}

	var detailsVal sql.NullString
	if details != "" {
		detailsVal = sql.NullString{String: details, Valid: true}
	}

	res, err := svc.db.Exec(`
		INSERT INTO alerts (camera_id, alert_type, track_id, timestamp, snapshot_path, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cameraID, string(kind), trackVal, timestamp, snapshotPath, detailsVal)
	if err != nil {
		return model.Alert{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Alert{}, err
	}

	saved := model.Alert{
		ID:        id,
		CameraID:  cameraID,
		Kind:      kind,
		TrackID:   trackID,
		Timestamp: timestamp,
	}
	if snapshotPath.Valid {
		saved.SnapshotPath = &snapshotPath.String
	}
	if detailsVal.Valid {
		saved.Details = &detailsVal.String
	}

	// The row is durable at this point, so the hook may fire.
	if svc.notifySvc != nil {
		if err := svc.notifySvc.Notify(cameraID, kind, trackID, timestamp); err != nil {
			return saved, fmt.Errorf("alert %d persisted but notification failed: %w", id, err)
		}
	}

	return saved, nil
}

func (svc *sqliteService) RecentAlerts(cameraID *int, limit int) ([]model.Alert, error) {
	var rows *sql.Rows
	var err error

	if cameraID != nil {
		rows, err = svc.db.Query(`
			SELECT id, camera_id, alert_type, track_id, timestamp, snapshot_path, details
			FROM alerts
			WHERE camera_id = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`, *cameraID, limit)
	} else {
		rows, err = svc.db.Query(`
			SELECT id, camera_id, alert_type, track_id, timestamp, snapshot_path, details
			FROM alerts
			ORDER BY timestamp DESC, id DESC
			LIMIT ?`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []model.Alert
	for rows.Next() {
		var a model.Alert
		var kind string
		var track sql.NullInt64
		var snapshot, details sql.NullString

		if err := rows.Scan(&a.ID, &a.CameraID, &kind, &track, &a.Timestamp, &snapshot, &details); err != nil {
			return nil, err
		}

		a.Kind = model.AlertKind(kind)
		if track.Valid {
			t := int(track.Int64)
			a.TrackID = &t
		}
		if snapshot.Valid {
			a.SnapshotPath = &snapshot.String
		}
		if details.Valid {
			a.Details = &details.String
		}

		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

func (svc *sqliteService) Close() error {
	return svc.db.Close()
}

// snapshotName builds a filesystem-safe, per-alert unique file name.
func snapshotName(cameraID int, kind model.AlertKind, trackID *int, timestamp string) string {
	track := "none"
	if trackID != nil {
		track = fmt.Sprintf("%d", *trackID)
	}
	safeTS := strings.ReplaceAll(timestamp, ":", "-")
	return fmt.Sprintf("cam%d_%s_track%s_%s.jpg", cameraID, kind, track, safeTS)
}
