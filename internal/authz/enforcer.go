// Package authz decides role-based permissions with Casbin. Roles form a
// hierarchy (Admin > Designer > User); ownership checks stay in the services.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"dreamio/internal/models"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Objects and actions referenced by the policy.
const (
	ObjUsers       = "users"
	ObjEvents      = "events"
	ObjLiveStreams = "live-streams"
	ObjEditor      = "editor"
	ObjProfile     = "profile"
	ObjStats       = "stats"

	ActCreate   = "create"
	ActRead     = "read"
	ActUpdate   = "update"
	ActDelete   = "delete"
	ActModerate = "moderate"
	ActUse      = "use"
)

// Enforcer wraps a synced Casbin enforcer loaded from the embedded model and policy.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the enforcer from the embedded model and policy.
func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadEmbeddedPolicy(e, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: e}, nil
}

// loadEmbeddedPolicy parses "p" and "g" lines of a policy CSV.
func loadEmbeddedPolicy(e *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 3 {
			continue
		}

		switch parts[0] {
		case "p":
			if len(parts) < 4 {
				return fmt.Errorf("malformed policy line %q", line)
			}
			if _, err := e.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case "g":
			if _, err := e.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		}
	}
	return nil
}

// Can reports whether role may perform act on obj. Enforcement errors deny.
func (e *Enforcer) Can(role models.Role, obj, act string) bool {
	if e == nil || role == "" {
		return false
	}
	allowed, err := e.enforcer.Enforce(string(role), obj, act)
	return err == nil && allowed
}
