package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/andys/dbsensor/sensor"
)

// Progress is a snapshot of the poller counters
type Progress struct {
	Rounds    int64
	Polls     int64
	Captured  int64
	Skipped   int64
	Failed    int64
	StartTime time.Time
}

// Poller polls a set of sensors using a worker pool.
// Different sensors are polled concurrently; each sensor serializes its own polls.
type Poller struct {
	sensors []*sensor.Sensor
	pool    pond.Pool
	writer  *Writer
	logger  *slog.Logger
	now     func() time.Time

	startTime time.Time
	rounds    atomic.Int64
	polls     atomic.Int64
	captured  atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// NewPoller creates a poller. writer may be nil when captures are not persisted.
func NewPoller(sensors []*sensor.Sensor, writer *Writer, maxWorkers int, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		sensors:   sensors,
		pool:      pond.NewPool(maxWorkers),
		writer:    writer,
		logger:    logger,
		now:       time.Now,
		startTime: time.Now(),
	}
}

// PollOnce polls every sensor once and waits for all of them.
// Per-poll failures are logged and counted, never returned.
func (p *Poller) PollOnce(ctx context.Context, triggered bool) error {
	group := p.pool.NewGroup()
	for _, s := range p.sensors {
		s := s
		group.SubmitErr(func() error {
			p.poll(ctx, s, triggered)
			return nil
		})
	}
	err := group.Wait()
	p.rounds.Add(1)
	return err
}

func (p *Poller) poll(ctx context.Context, s *sensor.Sensor, triggered bool) {
	d := s.Poll(ctx, triggered)
	p.polls.Add(1)

	switch d.Kind {
	case sensor.DecisionReadings:
		p.captured.Add(1)
		p.logger.Debug("poll captured", slog.String("sensor", s.Name()), slog.Int("entries", len(d.Reading)))
		if p.writer != nil {
			p.writer.Submit(Capture{Sensor: s.Name(), Reading: d.Reading, CapturedAt: p.now()})
		}
	case sensor.DecisionNoCapture:
		p.skipped.Add(1)
		p.logger.Debug("nothing to capture", slog.String("sensor", s.Name()))
	default:
		p.failed.Add(1)
		p.logger.Error("poll failed", slog.String("sensor", s.Name()), slog.Any("error", d.Err))
	}
}

// Run polls every interval until ctx is cancelled
func (p *Poller) Run(ctx context.Context, interval time.Duration, triggered bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx, triggered); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// GetProgress returns the current progress
func (p *Poller) GetProgress() Progress {
	return Progress{
		Rounds:    p.rounds.Load(),
		Polls:     p.polls.Load(),
		Captured:  p.captured.Load(),
		Skipped:   p.skipped.Load(),
		Failed:    p.failed.Load(),
		StartTime: p.startTime,
	}
}

// Stop stops the worker pool and waits for all tasks to complete
func (p *Poller) Stop() {
	p.pool.StopAndWait()
}
