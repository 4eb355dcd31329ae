package worker

import (
	"context"
	"time"

	"github.com/andys/dbsensor/reading"
)

// Capture is one persisted poll result
type Capture struct {
	Sensor     string
	Reading    reading.Reading
	CapturedAt time.Time
}

// Sink persists captures. db.CaptureStore and JSONSink implement it.
type Sink interface {
	Save(ctx context.Context, sensor string, r reading.Reading, capturedAt time.Time) error
}
