package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/andys/dbsensor/reading"
)

// WriterProgress tracks the progress of writing operations
type WriterProgress struct {
	Written int64
	Errors  int64
}

// Writer persists captures through a Sink using a worker pool
type Writer struct {
	ctx     context.Context
	sink    Sink
	pool    pond.Pool
	logger  *slog.Logger
	written atomic.Int64
	errors  atomic.Int64
}

// NewWriter creates a new writer worker pool.
// Saves outlive cancellation of ctx so StopAndWait drains every queued capture.
func NewWriter(ctx context.Context, sink Sink, maxWorkers int, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{
		ctx:    context.WithoutCancel(ctx),
		sink:   sink,
		pool:   pond.NewPool(maxWorkers, pond.WithQueueSize(maxWorkers*100)),
		logger: logger,
	}
}

// Submit queues a capture for writing
func (w *Writer) Submit(capture Capture) {
	w.pool.SubmitErr(func() error {
		err := w.sink.Save(w.ctx, capture.Sensor, capture.Reading, capture.CapturedAt)
		if err != nil {
			w.errors.Add(1)
			w.logger.Error("failed to store capture", slog.String("sensor", capture.Sensor), slog.Any("error", err))
			return err
		}
		w.written.Add(1)
		return nil
	})
}

// GetProgress returns the current progress
func (w *Writer) GetProgress() WriterProgress {
	return WriterProgress{Written: w.written.Load(), Errors: w.errors.Load()}
}

// StopAndWait stops the worker pool and waits for all queued writes
func (w *Writer) StopAndWait() {
	w.pool.StopAndWait()
}

// JSONSink writes one JSON object per capture
type JSONSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONSink writes captures to out as JSON lines
func NewJSONSink(out io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(out)}
}

type jsonCapture struct {
	Sensor     string          `json:"sensor"`
	CapturedAt time.Time       `json:"captured_at"`
	Readings   reading.Reading `json:"readings"`
}

// Save encodes the capture as a single line
func (s *JSONSink) Save(ctx context.Context, sensor string, r reading.Reading, capturedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(jsonCapture{Sensor: sensor, CapturedAt: capturedAt.UTC(), Readings: r})
}
