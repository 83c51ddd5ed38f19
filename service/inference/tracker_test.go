package inference

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/sitewatch/ss-go/model"
)

func det(label string, rect image.Rectangle) model.Detection {
	return model.Detection{Label: label, Confidence: 0.9, Rect: rect}
}

func TestTrackedAssignsStableIDs(t *testing.T) {
	// The same person drifts slightly frame over frame.
	svc := NewTracked(NewFake(
		[]model.Detection{det("person", image.Rect(100, 100, 200, 300))},
		[]model.Detection{det("person", image.Rect(105, 102, 205, 302))},
		[]model.Detection{det("person", image.Rect(112, 104, 212, 304))},
	))
	defer svc.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	var ids []int
	for i := 0; i < 3; i++ {
		dets, err := svc.Detect(frame)
		require.NoError(t, err)
		require.Len(t, dets, 1)
		require.NotNil(t, dets[0].TrackID)
		ids = append(ids, *dets[0].TrackID)
	}

	require.Equal(t, ids[0], ids[1])
	require.Equal(t, ids[1], ids[2])
}

func TestTrackedSeparatesDistinctObjects(t *testing.T) {
	svc := NewTracked(NewFake(
		[]model.Detection{
			det("person", image.Rect(0, 0, 50, 100)),
			det("person", image.Rect(500, 0, 550, 100)),
		},
	))
	defer svc.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	dets, err := svc.Detect(frame)
	require.NoError(t, err)
	require.Len(t, dets, 2)
	require.NotEqual(t, *dets[0].TrackID, *dets[1].TrackID)
}

func TestTrackedDoesNotMatchAcrossLabels(t *testing.T) {
	svc := NewTracked(NewFake(
		[]model.Detection{det("person", image.Rect(100, 100, 200, 300))},
		[]model.Detection{det("helmet", image.Rect(100, 100, 200, 300))},
	))
	defer svc.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	first, err := svc.Detect(frame)
	require.NoError(t, err)
	second, err := svc.Detect(frame)
	require.NoError(t, err)

	// Same box, different class: a new track.
	require.NotEqual(t, *first[0].TrackID, *second[0].TrackID)
}

func TestTrackedExpiresStaleTracks(t *testing.T) {
	script := [][]model.Detection{
		{det("person", image.Rect(100, 100, 200, 300))},
	}
	// The person disappears past the miss budget, then returns in the
	// same spot.
	for i := 0; i < trackerMaxMisses+1; i++ {
		script = append(script, nil)
	}
	script = append(script, []model.Detection{det("person", image.Rect(100, 100, 200, 300))})

	svc := NewTracked(NewFake(script...))
	defer svc.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	first, err := svc.Detect(frame)
	require.NoError(t, err)
	firstID := *first[0].TrackID

	for i := 0; i < trackerMaxMisses+1; i++ {
		_, err := svc.Detect(frame)
		require.NoError(t, err)
	}

	last, err := svc.Detect(frame)
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.NotEqual(t, firstID, *last[0].TrackID, "expired track must not be resurrected")
}

func TestIoU(t *testing.T) {
	a := image.Rect(0, 0, 10, 10)
	require.InDelta(t, 1.0, iou(a, a), 1e-9)
	require.Zero(t, iou(a, image.Rect(20, 20, 30, 30)))
	// Half overlap: intersection 50, union 150.
	require.InDelta(t, 1.0/3.0, iou(a, image.Rect(5, 0, 15, 10)), 1e-9)
}
