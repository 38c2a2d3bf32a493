/*
Package factory provides JSON to Go payroll configuration conversion.

PURPOSE:
  The payroll configuration (insurance rates, income tax rate, deduction item
  catalog) is stored and edited as JSON. The factory parses it into a
  settlement.PayrollConfig, fills what is absent with the statutory
  defaults, and rejects rates outside [0, 1].

JSON SCHEMA:
  {
    "insurance_rates": {
      "pension": 0.045,
      "health": 0.03545,
      "care_of_health": 0.1295,
      "employment": 0.009
    },
    "tax_rate": 0.033,
    "deduction_items": [
      {"id": "advance", "label": "가불금", "active": true},
      {"id": "housing", "label": "숙소비"}
    ]
  }

  An item without "active" is active.

USAGE:
  f := NewConfigFactory()
  cfg, err := f.ParseConfig(jsonString)

SEE ALSO:
  - settlement/types.go: PayrollConfig
  - payroll/items.go: default catalog and legacy item aliases
*/
package factory

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// DEFAULTS
// =============================================================================

// Statutory defaults.
const (
	DefaultPensionRate      = 0.045
	DefaultHealthRate       = 0.03545
	DefaultCareOfHealthRate = 0.1295
	DefaultEmploymentRate   = 0.009
	DefaultTaxRate          = 0.033
)

// DefaultConfig returns the configuration used when none is stored.
func DefaultConfig() settlement.PayrollConfig {
	return settlement.PayrollConfig{
		InsuranceRates: settlement.InsuranceRates{
			Pension:      DefaultPensionRate,
			Health:       DefaultHealthRate,
			CareOfHealth: DefaultCareOfHealthRate,
			Employment:   DefaultEmploymentRate,
		},
		TaxRate:              DefaultTaxRate,
		DeductionItemCatalog: payroll.DefaultCatalog(),
	}
}

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of a payroll configuration.
type ConfigJSON struct {
	InsuranceRates *RatesJSON `json:"insurance_rates,omitempty"`
	TaxRate        *float64   `json:"tax_rate,omitempty"`
	DeductionItems []ItemJSON `json:"deduction_items,omitempty"`
}

// RatesJSON represents the insurance rates. Absent rates take the default.
type RatesJSON struct {
	Pension      *float64 `json:"pension,omitempty"`
	Health       *float64 `json:"health,omitempty"`
	CareOfHealth *float64 `json:"care_of_health,omitempty"`
	Employment   *float64 `json:"employment,omitempty"`
}

// ItemJSON represents one deduction catalog item.
type ItemJSON struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Active *bool  `json:"active,omitempty"`
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON configurations to Go structs.
type ConfigFactory struct{}

// NewConfigFactory creates a new config factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseConfig parses a JSON string into a PayrollConfig.
func (f *ConfigFactory) ParseConfig(jsonStr string) (settlement.PayrollConfig, error) {
	var cj ConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return settlement.PayrollConfig{}, fmt.Errorf("failed to parse payroll config JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts ConfigJSON to a PayrollConfig.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (settlement.PayrollConfig, error) {
	cfg := DefaultConfig()

	if r := cj.InsuranceRates; r != nil {
		for _, field := range []struct {
			name string
			src  *float64
			dst  *float64
		}{
			{"pension", r.Pension, &cfg.InsuranceRates.Pension},
			{"health", r.Health, &cfg.InsuranceRates.Health},
			{"care_of_health", r.CareOfHealth, &cfg.InsuranceRates.CareOfHealth},
			{"employment", r.Employment, &cfg.InsuranceRates.Employment},
		} {
			if field.src == nil {
				continue
			}
			if err := checkRate(field.name, *field.src); err != nil {
				return settlement.PayrollConfig{}, err
			}
			*field.dst = *field.src
		}
	}

	if cj.TaxRate != nil {
		if err := checkRate("tax_rate", *cj.TaxRate); err != nil {
			return settlement.PayrollConfig{}, err
		}
		cfg.TaxRate = *cj.TaxRate
	}

	if len(cj.DeductionItems) > 0 {
		items, err := parseItems(cj.DeductionItems)
		if err != nil {
			return settlement.PayrollConfig{}, err
		}
		cfg.DeductionItemCatalog = items
	}

	return cfg, nil
}

// ToJSON converts a PayrollConfig to its JSON form.
func (f *ConfigFactory) ToJSON(cfg settlement.PayrollConfig) (string, error) {
	r := cfg.InsuranceRates
	cj := ConfigJSON{
		InsuranceRates: &RatesJSON{
			Pension:      &r.Pension,
			Health:       &r.Health,
			CareOfHealth: &r.CareOfHealth,
			Employment:   &r.Employment,
		},
		TaxRate: &cfg.TaxRate,
	}
	for _, it := range cfg.DeductionItemCatalog {
		active := it.Active
		cj.DeductionItems = append(cj.DeductionItems, ItemJSON{ID: it.ID, Label: it.Label, Active: &active})
	}

	data, err := json.Marshal(cj)
	if err != nil {
		return "", fmt.Errorf("failed to encode payroll config: %w", err)
	}
	return string(data), nil
}

func checkRate(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
		return fmt.Errorf("invalid %s: %v (must be between 0 and 1)", name, v)
	}
	return nil
}

func parseItems(in []ItemJSON) ([]settlement.DeductionItem, error) {
	seen := make(map[string]bool)
	items := make([]settlement.DeductionItem, 0, len(in))
	for i, ij := range in {
		id := strings.TrimSpace(ij.ID)
		if id == "" {
			return nil, fmt.Errorf("deduction item %d: id is required", i)
		}
		if seen[id] {
			return nil, fmt.Errorf("deduction item %q: duplicate id", id)
		}
		seen[id] = true

		label := strings.TrimSpace(ij.Label)
		if label == "" {
			label = id
		}
		active := true
		if ij.Active != nil {
			active = *ij.Active
		}
		items = append(items, settlement.DeductionItem{ID: id, Label: label, Active: active})
	}
	return items, nil
}
