package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/payroll"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParseConfig_EmptyObjectUsesDefaults(t *testing.T) {
	f := factory.NewConfigFactory()

	cfg, err := f.ParseConfig(`{}`)

	require.NoError(t, err)
	assert.Equal(t, factory.DefaultConfig(), cfg)
	assert.Equal(t, 0.045, cfg.InsuranceRates.Pension)
	assert.Equal(t, 0.033, cfg.TaxRate)
	assert.Len(t, cfg.DeductionItemCatalog, len(payroll.DefaultCatalog()))
}

func TestParseConfig_PartialRates(t *testing.T) {
	// GIVEN: A config overriding only the health rate and the tax rate
	// WHEN: Parsing
	// THEN: The other rates keep their statutory defaults

	f := factory.NewConfigFactory()

	cfg, err := f.ParseConfig(`{"insurance_rates": {"health": 0.0355}, "tax_rate": 0}`)

	require.NoError(t, err)
	assert.Equal(t, 0.0355, cfg.InsuranceRates.Health)
	assert.Equal(t, factory.DefaultPensionRate, cfg.InsuranceRates.Pension)
	assert.Equal(t, factory.DefaultCareOfHealthRate, cfg.InsuranceRates.CareOfHealth)
	assert.Equal(t, 0.0, cfg.TaxRate)
}

func TestParseConfig_CustomCatalog(t *testing.T) {
	f := factory.NewConfigFactory()

	cfg, err := f.ParseConfig(`{"deduction_items": [
		{"id": "advance", "label": "가불금"},
		{"id": " uniform ", "label": "", "active": false}
	]}`)

	require.NoError(t, err)
	assert.Equal(t, []settlement.DeductionItem{
		{ID: "advance", Label: "가불금", Active: true},
		{ID: "uniform", Label: "uniform", Active: false},
	}, cfg.DeductionItemCatalog)
}

func TestParseConfig_Rejects(t *testing.T) {
	f := factory.NewConfigFactory()

	cases := map[string]string{
		"malformed":       `{"tax_rate": `,
		"negative rate":   `{"insurance_rates": {"pension": -0.01}}`,
		"rate above one":  `{"tax_rate": 1.5}`,
		"blank item id":   `{"deduction_items": [{"id": "  ", "label": "x"}]}`,
		"duplicate items": `{"deduction_items": [{"id": "a"}, {"id": "a"}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParseConfig(in)
			assert.Error(t, err)
		})
	}
}

// =============================================================================
// ENCODE TESTS
// =============================================================================

func TestToJSON_PreservesInactiveItems(t *testing.T) {
	// GIVEN: A config whose catalog has an inactive item
	// WHEN: Encoding and parsing it back
	// THEN: The item stays inactive rather than taking the active default

	f := factory.NewConfigFactory()
	cfg := factory.DefaultConfig()
	cfg.TaxRate = 0.03
	cfg.DeductionItemCatalog[1].Active = false

	data, err := f.ToJSON(cfg)
	require.NoError(t, err)
	assert.Contains(t, data, `"tax_rate":0.03`)

	back, err := f.ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
