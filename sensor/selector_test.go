package sensor

import (
	"errors"
	"testing"

	"github.com/andys/dbsensor/config"
	"github.com/frankban/quicktest"
)

func TestSelect(t *testing.T) {
	c := quicktest.New(t)
	full := config.QuerySet{Default: "SELECT 1", Filter: "SELECT 2", Action: "UPDATE x SET y = 1"}

	role, err := Select(full, false)
	c.Assert(err, quicktest.IsNil)
	c.Assert(role, quicktest.Equals, config.RoleDefault)

	role, err = Select(full, true)
	c.Assert(err, quicktest.IsNil)
	c.Assert(role, quicktest.Equals, config.RoleFilter)

	role, err = Select(config.QuerySet{Default: "SELECT 1"}, true)
	c.Assert(err, quicktest.IsNil)
	c.Assert(role, quicktest.Equals, config.RoleDefault)

	_, err = Select(config.QuerySet{Filter: "SELECT 2", Action: "UPDATE x SET y = 1"}, false)
	c.Assert(errors.Is(err, ErrNoQueryConfigured), quicktest.IsTrue)
	c.Assert(err, quicktest.ErrorMatches, "no query configured for role default")
}
