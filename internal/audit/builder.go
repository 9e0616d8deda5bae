package audit

import (
	"fmt"

	"github.com/casbridge/casbridge/internal/config"
	"github.com/casbridge/casbridge/internal/core"
)

// Build constructs the auditor selected by the configuration. Disabled
// auditing yields the noop auditor.
func Build(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}
	switch cfg.Type {
	case "file":
		return NewFileAuditor(cfg.Path)
	case "memory", "":
		return NewInMemoryAuditor(), nil
	default:
		return nil, fmt.Errorf("unknown audit type '%s'", cfg.Type)
	}
}
