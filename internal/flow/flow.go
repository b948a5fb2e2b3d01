// Package flow implements the adaptive intake flows: catalog builders, the
// session engine, and the two-phase submission protocol.
package flow

import (
	"fmt"
	"log/slog"

	"github.com/TenantGuard/intake-engine/internal/models"
)

// CatalogBuilder derives the full ordered step catalog from an answer store.
// Builders must be pure: given identical answers they always return identical
// catalogs, in both step ids and order. The catalog is rebuilt from scratch on
// every answer; it is never patched incrementally.
type CatalogBuilder func(answers models.Answers) []models.Step

var registry = make(map[models.FlowType]CatalogBuilder)

// Register associates a FlowType with a CatalogBuilder implementation.
func Register(ft models.FlowType, builder CatalogBuilder) {
	registry[ft] = builder
}

// Get retrieves the CatalogBuilder for a given FlowType.
func Get(ft models.FlowType) (CatalogBuilder, bool) {
	builder, ok := registry[ft]
	return builder, ok
}

// BuildCatalog finds and runs the builder for the given flow type.
func BuildCatalog(ft models.FlowType, answers models.Answers) ([]models.Step, error) {
	if builder, ok := Get(ft); ok {
		catalog := builder(answers)
		slog.Debug("flow.BuildCatalog: catalog rebuilt", "flow", ft, "steps", len(catalog))
		return catalog, nil
	}
	slog.Error("flow.BuildCatalog: no builder registered for flow type", "flow", ft)
	return nil, fmt.Errorf("no catalog builder registered for flow type %s: %w", ft, models.ErrInvalidFlowType)
}

// Register default builders
func init() {
	Register(models.FlowTypeTenant, BuildTenantCatalog)
	Register(models.FlowTypeAttorney, BuildAttorneyCatalog)
}
