package anonymizer

import (
	"strings"
	"sync"

	"github.com/andys/dbsensor/reading"
	"github.com/brianvoe/gofakeit/v7"
)

// Anonymizer replaces the values of configured columns with fake data
type Anonymizer struct {
	mu      sync.Mutex
	columns map[string]bool
	faker   *gofakeit.Faker
}

// New creates an anonymizer for columns. A zero seed picks a random one.
func New(columns []string, seed uint64) *Anonymizer {
	cols := make(map[string]bool, len(columns))
	for _, col := range columns {
		cols[strings.ToLower(col)] = true
	}
	return &Anonymizer{columns: cols, faker: gofakeit.New(seed)}
}

// Enabled reports whether any column is configured
func (a *Anonymizer) Enabled() bool {
	return a != nil && len(a.columns) > 0
}

// Anonymize performs in-place anonymization of every entry of r.
// NULL and empty values are left alone.
func (a *Anonymizer) Anonymize(r reading.Reading) {
	if !a.Enabled() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, fields := range r {
		for col, val := range fields {
			if !a.columns[strings.ToLower(col)] || val == "" || val == reading.Null {
				continue
			}
			fields[col] = a.fake(col, len(val))
		}
	}
}

func (a *Anonymizer) fake(column string, length int) string {
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "email"):
		return a.faker.Email()
	case strings.Contains(name, "phone"):
		return a.faker.Phone()
	case strings.Contains(name, "address") || strings.Contains(name, "street"):
		return a.faker.Street()
	case strings.Contains(name, "name"):
		return a.faker.Name()
	default:
		return a.faker.LetterN(uint(length))
	}
}
