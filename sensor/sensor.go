// Package sensor exposes a database table as a polled sensor.
//
// Each poll runs one configured statement (or the filter/action pair for a
// capture-triggered poll) and returns a reading keyed by the table's primary
// key. Polls on one Sensor are serialized; a Sensor holds no connection
// between polls.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/andys/dbsensor/anonymizer"
	"github.com/andys/dbsensor/config"
	"github.com/andys/dbsensor/db"
	"github.com/andys/dbsensor/reading"
)

// TriggerKey is the key of the extra map a host sets on data capture polls
const TriggerKey = "fromDataManagement"

// Sensor polls one table
type Sensor struct {
	name    string
	logger  *slog.Logger
	connect db.ConnectFunc
	seed    uint64

	mu         sync.Mutex
	cfg        config.SensorConfig
	configured bool
	executor   *db.Executor
	cache      *db.PrimaryKeyCache
	anonymizer *anonymizer.Anonymizer
}

// Option configures a Sensor
type Option func(*Sensor)

// WithLogger sets the sensor logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sensor) {
		s.logger = logger
	}
}

// WithConnectFunc replaces how connections are opened for each statement
func WithConnectFunc(fn db.ConnectFunc) Option {
	return func(s *Sensor) {
		s.connect = fn
	}
}

// WithAnonymizerSeed makes anonymized values reproducible
func WithAnonymizerSeed(seed uint64) Option {
	return func(s *Sensor) {
		s.seed = seed
	}
}

// NewUnconfigured creates a sensor that has not received any attributes yet.
// Its polls report ErrMissingCredentials until Reconfigure succeeds.
func NewUnconfigured(name string, opts ...Option) *Sensor {
	s := &Sensor{name: name, connect: db.Connect}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	s.logger = s.logger.With(slog.String("sensor", name))
	return s
}

// New creates a sensor from a raw attribute bag.
// Any validation error is fatal: no sensor is returned.
func New(name string, attrs config.Attributes, opts ...Option) (*Sensor, error) {
	s := NewUnconfigured(name, opts...)
	if err := s.Reconfigure(attrs); err != nil {
		return nil, fmt.Errorf("failed to configure sensor %s: %w", name, err)
	}
	return s, nil
}

// Name returns the sensor name
func (s *Sensor) Name() string {
	return s.name
}

// Config returns the current resolved configuration
func (s *Sensor) Config() config.SensorConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Reconfigure resolves attrs and swaps the configuration in one step.
// On error the previous configuration stays active.
func (s *Sensor) Reconfigure(attrs config.Attributes) error {
	cfg, err := config.Resolve(attrs)
	if err != nil {
		return err
	}
	s.Apply(cfg)
	return nil
}

// Apply installs an already resolved configuration
func (s *Sensor) Apply(cfg config.SensorConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []db.ExecutorOption{db.WithConnectFunc(s.connect), db.WithLogger(s.logger)}
	s.cache = nil
	if cfg.CachePrimaryKey {
		s.cache = db.NewPrimaryKeyCache()
		opts = append(opts, db.WithPrimaryKeyCache(s.cache))
	}
	s.executor = db.NewExecutor(opts...)
	s.anonymizer = anonymizer.New(cfg.AnonymizeColumns, s.seed)
	s.cfg = cfg
	s.configured = true

	s.logger.Debug("sensor reconfigured", slog.Any("connection", cfg.Connection), slog.Bool("trigger", cfg.Queries.HasTrigger()))
}

// Poll runs one poll and returns its decision.
// Polls on the same sensor never overlap.
func (s *Sensor) Poll(ctx context.Context, triggered bool) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.configured || len(s.cfg.Connection.MissingCredentials()) > 0 {
		return errorDecision(ErrMissingCredentials)
	}
	if triggered && !s.cfg.Queries.HasTrigger() {
		return errorDecision(ErrTriggerNotConfigured)
	}

	role, err := Select(s.cfg.Queries, triggered)
	if err != nil {
		return errorDecision(err)
	}

	r, err := s.read(ctx, role)
	if err != nil {
		return errorDecision(err)
	}

	if role == config.RoleDefault {
		s.anonymizer.Anonymize(r)
		return readingsDecision(r)
	}

	s.logger.Debug("filter query finished", slog.Int("count", len(r)))
	if len(r) != 1 {
		return noCaptureDecision()
	}

	if _, err := s.executor.Execute(ctx, s.cfg.Connection, s.cfg.Queries.Action); err != nil {
		return errorDecision(fmt.Errorf("action query failed: %w", err))
	}

	s.anonymizer.Anonymize(r)
	return readingsDecision(r)
}

// read runs the statement for role and transforms its result.
// A primary key missing from the result columns yields an empty reading.
func (s *Sensor) read(ctx context.Context, role config.Role) (reading.Reading, error) {
	statement := s.cfg.Queries.Get(role)
	res, err := s.executor.Execute(ctx, s.cfg.Connection, statement)
	if err != nil {
		return nil, err
	}
	if !db.IsRead(statement) {
		s.logger.Debug("statement returned no rows", slog.String("role", string(role)), slog.Int64("rows_affected", res.RowsAffected))
		return reading.Reading{}, nil
	}

	r, stats, err := reading.Transform(res.PrimaryKey, res.Columns, res.Rows)
	if err != nil {
		s.logger.Error("failed to transform rows", slog.String("role", string(role)), slog.Any("error", err))
		return r, nil
	}
	if stats.Skipped > 0 {
		s.logger.Error("row length does not match column count", slog.Int("skipped", stats.Skipped))
	}
	if stats.Overwritten > 0 {
		s.logger.Warn("duplicate primary key values in result", slog.Int("overwritten", stats.Overwritten))
	}
	return r, nil
}

// Readings is the host facing poll entry point.
// Missing credentials are reported as an error payload, a NoCapture decision
// as ErrNoCaptureToStore, and any other failure as an error.
func (s *Sensor) Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error) {
	d := s.Poll(ctx, Triggered(extra))
	switch d.Kind {
	case DecisionReadings:
		return d.Reading.Map(), nil
	case DecisionNoCapture:
		return nil, ErrNoCaptureToStore
	default:
		if errors.Is(d.Err, ErrMissingCredentials) {
			return map[string]interface{}{"error": d.Err.Error()}, nil
		}
		return nil, d.Err
	}
}

// Triggered reports whether the host marked this poll as a data capture poll
func Triggered(extra map[string]interface{}) bool {
	v, ok := extra[TriggerKey].(bool)
	return ok && v
}

// DoCommand is the generic command channel. No commands are supported.
func (s *Sensor) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, ErrNotImplemented
}

// Close releases the sensor. No resources are held between polls.
func (s *Sensor) Close(ctx context.Context) error {
	s.logger.Info("sensor closed")
	return nil
}

// CachedPrimaryKeys returns how many primary key lookups are cached
func (s *Sensor) CachedPrimaryKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
