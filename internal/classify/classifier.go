// Package classify derives a vehicle's operational category from its plate
// identifier using an ordered, externally supplied rule list.
package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"fleet-trip-audit/internal/models"
)

// Rule maps an identifier substring to a category. Matching is
// case-insensitive; rules are evaluated in order and the first match wins.
type Rule struct {
	Pattern  string          `json:"pattern"`
	Category models.Category `json:"category"`
}

// Classifier assigns operational categories to plate identifiers.
type Classifier struct {
	rules []Rule
}

// DefaultRules mirrors the plate conventions seen in field reports: backup
// and transfer markers in the plate string, route and sales prefixes on
// regular duty vehicles.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "BACKUP", Category: models.CategoryDepotBackup},
		{Pattern: "BKP", Category: models.CategoryDepotBackup},
		{Pattern: "TRANSFER", Category: models.CategoryTransfer},
		{Pattern: "TRF", Category: models.CategoryTransfer},
		{Pattern: "RT-", Category: models.CategoryActiveStandard},
		{Pattern: "ROUTE", Category: models.CategoryActiveStandard},
		{Pattern: "SALES", Category: models.CategoryActiveStandard},
	}
}

// New creates a Classifier with the given ordered rules. Nil falls back to
// DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify maps an identifier to its category. Pure and deterministic: the
// same identifier always yields the same category under one rule set.
// Identifiers matching no rule default to ActiveStandard when well-formed,
// otherwise Unknown.
func (c *Classifier) Classify(identifier string) models.Category {
	id := strings.ToUpper(strings.TrimSpace(identifier))
	for _, r := range c.rules {
		if strings.Contains(id, strings.ToUpper(r.Pattern)) {
			return r.Category
		}
	}
	if wellFormed(id) {
		return models.CategoryActiveStandard
	}
	return models.CategoryUnknown
}

// wellFormed accepts identifiers that look like an actual plate: at least
// two characters, at least one of them alphanumeric.
func wellFormed(id string) bool {
	if len(id) < 2 {
		return false
	}
	for _, r := range id {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return true
		}
	}
	return false
}

// LoadRules reads an ordered rule list from a JSON file so operational
// categories can change without code changes.
func LoadRules(filename string) ([]Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		switch r.Category {
		case models.CategoryActiveStandard, models.CategoryDepotBackup,
			models.CategoryTransfer, models.CategoryUnknown:
		default:
			return nil, fmt.Errorf("rule %d: unknown category %q", i, r.Category)
		}
	}

	return rules, nil
}
