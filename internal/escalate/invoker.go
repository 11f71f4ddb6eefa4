package escalate

import (
	"context"

	"github.com/peterbitar/holdingswatch/internal/domain"
)

// Invoker performs a broader, more expensive research pass for one
// escalation reason. Treated as a black box by the pipeline.
type Invoker interface {
	Research(ctx context.Context, query string) (domain.Finding, error)
}
