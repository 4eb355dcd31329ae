package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Attributes is the raw attribute bag handed over by whatever hosts the sensor
type Attributes map[string]interface{}

// Driver names the database/sql driver used to reach the table
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverPgx      Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

// Role names one statement of a QuerySet
type Role string

const (
	RoleDefault Role = "default"
	RoleFilter  Role = "filter"
	RoleAction  Role = "action"
)

// ConnectionDescriptor is everything needed to open a connection for one call
type ConnectionDescriptor struct {
	Driver       Driver
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	Table        string
	QueryTimeout time.Duration
}

// MissingCredentials lists the blank connection fields required by the driver
func (d ConnectionDescriptor) MissingCredentials() []string {
	var missing []string
	if d.Driver != DriverSQLite {
		if blank(d.Host) {
			missing = append(missing, "host")
		}
		if blank(d.User) {
			missing = append(missing, "user")
		}
		if blank(d.Password) {
			missing = append(missing, "password")
		}
	}
	if blank(d.Database) {
		missing = append(missing, "database")
	}
	return missing
}

// LogValue keeps the password out of log output
func (d ConnectionDescriptor) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("driver", string(d.Driver)),
		slog.String("host", d.Host),
		slog.Int("port", d.Port),
		slog.String("user", d.User),
		slog.String("database", d.Database),
		slog.String("table", d.Table),
	)
}

// QuerySet maps statement roles to SQL text
type QuerySet struct {
	Default string
	Filter  string
	Action  string
}

// Get returns the statement configured for role
func (q QuerySet) Get(role Role) string {
	switch role {
	case RoleDefault:
		return q.Default
	case RoleFilter:
		return q.Filter
	case RoleAction:
		return q.Action
	default:
		return ""
	}
}

// HasTrigger reports whether the filter/action pair is usable
func (q QuerySet) HasTrigger() bool {
	return !blank(q.Filter) && !blank(q.Action)
}

// SensorConfig is the resolved, typed configuration of one sensor
type SensorConfig struct {
	Connection       ConnectionDescriptor
	Queries          QuerySet
	CachePrimaryKey  bool
	AnonymizeColumns []string
}

// ValidationError names every missing or invalid attribute found by Resolve
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required attributes: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid attributes: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

type rawQueries struct {
	Default string `mapstructure:"default_query"`
	Filter  string `mapstructure:"filter_query"`
	Action  string `mapstructure:"action_query"`
}

// rawFiltered carries the older nested filter/action attribute names
type rawFiltered struct {
	Filter string `mapstructure:"filter-query"`
	Action string `mapstructure:"action-query"`
}

type rawAttributes struct {
	Driver           string        `mapstructure:"driver"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Database         string        `mapstructure:"database"`
	Table            string        `mapstructure:"table"`
	Query            string        `mapstructure:"query"`
	Queries          *rawQueries   `mapstructure:"queries"`
	Filtered         *rawFiltered  `mapstructure:"filtered-data-capture-parameters"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout"`
	CachePrimaryKey  bool          `mapstructure:"cache_primary_key"`
	AnonymizeColumns []string      `mapstructure:"anonymize_columns"`
}

// Resolve turns a raw attribute bag into a SensorConfig.
// Every missing attribute is collected before failing so that a single
// ValidationError lists all of them.
func Resolve(attrs Attributes) (SensorConfig, error) {
	var raw rawAttributes
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return SensorConfig{}, fmt.Errorf("failed to create attribute decoder: %w", err)
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return SensorConfig{}, fmt.Errorf("failed to decode attributes: %w", err)
	}

	cfg := SensorConfig{
		Connection: ConnectionDescriptor{
			Driver:       Driver(strings.ToLower(strings.TrimSpace(raw.Driver))),
			Host:         strings.TrimSpace(raw.Host),
			Port:         raw.Port,
			User:         strings.TrimSpace(raw.User),
			Password:     raw.Password,
			Database:     strings.TrimSpace(raw.Database),
			Table:        strings.TrimSpace(raw.Table),
			QueryTimeout: raw.QueryTimeout,
		},
		Queries:         resolveQueries(raw),
		CachePrimaryKey: raw.CachePrimaryKey,
	}
	for _, col := range raw.AnonymizeColumns {
		if col = strings.TrimSpace(col); col != "" {
			cfg.AnonymizeColumns = append(cfg.AnonymizeColumns, col)
		}
	}
	if cfg.Connection.Driver == "" {
		cfg.Connection.Driver = DriverMySQL
	}

	verr := &ValidationError{}
	switch cfg.Connection.Driver {
	case DriverMySQL, DriverPostgres, DriverPgx, DriverSQLite:
	default:
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("driver (unsupported value %q)", raw.Driver))
	}
	if cfg.Connection.Port < 0 || cfg.Connection.Port > 65535 {
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("port (out of range: %d)", cfg.Connection.Port))
	}
	if cfg.Connection.QueryTimeout < 0 {
		verr.Invalid = append(verr.Invalid, "query_timeout (negative)")
	}
	if !blank(raw.Query) && raw.Queries != nil && !blank(raw.Queries.Default) {
		verr.Invalid = append(verr.Invalid, "query (conflicts with queries.default_query)")
	}

	verr.Missing = cfg.Connection.MissingCredentials()
	if blank(cfg.Connection.Table) {
		verr.Missing = append(verr.Missing, "table")
	}
	if blank(cfg.Queries.Default) && !cfg.Queries.HasTrigger() {
		verr.Missing = append(verr.Missing, "query")
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return SensorConfig{}, verr
	}
	return cfg, nil
}

// resolveQueries merges the flat, structured and legacy query attributes.
// The filter and action roles are only kept as a pair.
func resolveQueries(raw rawAttributes) QuerySet {
	qs := QuerySet{Default: strings.TrimSpace(raw.Query)}
	if raw.Queries != nil {
		if qs.Default == "" {
			qs.Default = strings.TrimSpace(raw.Queries.Default)
		}
		qs.Filter = strings.TrimSpace(raw.Queries.Filter)
		qs.Action = strings.TrimSpace(raw.Queries.Action)
	}
	if raw.Filtered != nil && !qs.HasTrigger() {
		qs.Filter = strings.TrimSpace(raw.Filtered.Filter)
		qs.Action = strings.TrimSpace(raw.Filtered.Action)
	}
	if !qs.HasTrigger() {
		qs.Filter, qs.Action = "", ""
	}
	return qs
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
