package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration of the dbsensor binary
type Config struct {
	ConfigFile  string
	CaptureURL  string
	CaptureFile string
	Debug       bool
	LogFormat   string
	WorkerCount int
	Interval    time.Duration
	Triggered   bool
	Sensors     []SensorSpec
}

// SensorSpec is one entry of the sensors file: a name plus its raw attribute bag
type SensorSpec struct {
	Name       string     `yaml:"name"`
	Attributes Attributes `yaml:"attributes"`
}

type sensorFile struct {
	Sensors []SensorSpec `yaml:"sensors"`
}

// LoadConfig reads the sensors file and appends its entries to cfg.Sensors.
// Attribute values are resolved later, per sensor, by Resolve.
func LoadConfig(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file sensorFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	seen := make(map[string]bool, len(file.Sensors))
	for i, spec := range file.Sensors {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return fmt.Errorf("sensor #%d has no name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("duplicate sensor name: %s", name)
		}
		seen[name] = true
		spec.Name = name
		if spec.Attributes == nil {
			spec.Attributes = Attributes{}
		}
		cfg.Sensors = append(cfg.Sensors, spec)
	}

	return nil
}

// Sensor returns the named sensor spec
func (c *Config) Sensor(name string) (SensorSpec, bool) {
	for _, spec := range c.Sensors {
		if spec.Name == name {
			return spec, true
		}
	}
	return SensorSpec{}, false
}
