package sensor

import (
	"fmt"

	"github.com/andys/dbsensor/config"
)

// Select picks the statement role for a poll.
// A triggered poll uses the filter role when the filter/action pair is
// configured; everything else uses the default role.
func Select(qs config.QuerySet, triggered bool) (config.Role, error) {
	role := config.RoleDefault
	if triggered && qs.HasTrigger() {
		role = config.RoleFilter
	}
	if qs.Get(role) == "" {
		return "", fmt.Errorf("%w for role %s", ErrNoQueryConfigured, role)
	}
	return role, nil
}
