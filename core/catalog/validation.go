// Package catalog - Catalog validation
// Ensures catalog integrity and enforces invariants.
package catalog

import (
	"fmt"
	"strings"

	"agrimarket/core/types"
)

// ValidationRule is a catalog validation rule
type ValidationRule func(*types.Market) error

// DefaultValidationRules returns the standard validation rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateIdentity,
		validateRegion,
		validateCoordinates,
	}
}

func validate(entries []types.Market, rules []ValidationRule) []error {
	var errors []error

	for i := range entries {
		for _, rule := range rules {
			if err := rule(&entries[i]); err != nil {
				errors = append(errors, fmt.Errorf("market %d (%q): %w", i, entries[i].ID, err))
			}
		}
	}

	return errors
}

// validateIdentity ensures id and name are present
func validateIdentity(m *types.Market) error {
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// validateRegion ensures the market belongs to a region
func validateRegion(m *types.Market) error {
	if strings.TrimSpace(m.Region) == "" {
		return fmt.Errorf("state is required")
	}
	return nil
}

// validateCoordinates ensures the market can be ranked by distance
func validateCoordinates(m *types.Market) error {
	if !m.Coordinates.Valid() {
		return fmt.Errorf("coordinates out of range: %v", m.Coordinates)
	}
	return nil
}
