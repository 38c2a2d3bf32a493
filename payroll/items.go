package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// DEDUCTION ITEM CATALOG
// =============================================================================

// Canonical deduction item ids.
const (
	ItemAdvance   = "advance"
	ItemHousing   = "housing"
	ItemMeals     = "meals"
	ItemUtilities = "utilities"
	ItemEquipment = "equipment"
	ItemOther     = "other"

	// OverrideLineID identifies the synthetic line carrying the part of a
	// total override that the itemized lines do not explain.
	OverrideLineID = "overrideRemainder"
)

// DefaultCatalog is used when the payroll configuration carries none.
func DefaultCatalog() []settlement.DeductionItem {
	return []settlement.DeductionItem{
		{ID: ItemAdvance, Label: "가불금", Active: true},
		{ID: ItemHousing, Label: "숙소비", Active: true},
		{ID: ItemMeals, Label: "식대", Active: true},
		{ID: ItemUtilities, Label: "공과금", Active: true},
		{ID: ItemEquipment, Label: "장비 대여", Active: false},
		{ID: ItemOther, Label: "기타 공제", Active: true},
	}
}

// itemAliases maps normalized legacy keys onto canonical ids. Keys are
// compared after settlement.NormalizeTag.
var itemAliases = map[string]string{
	"advance":        ItemAdvance,
	"advancepayment": ItemAdvance,
	"cashadvance":    ItemAdvance,
	"prepayment":     ItemAdvance,
	"가불":             ItemAdvance,
	"가불금":            ItemAdvance,
	"선지급":            ItemAdvance,

	"housing":       ItemHousing,
	"dormitory":     ItemHousing,
	"accommodation": ItemHousing,
	"lodging":       ItemHousing,
	"rent":          ItemHousing,
	"숙소":            ItemHousing,
	"숙소비":           ItemHousing,
	"숙박비":           ItemHousing,

	"meals": ItemMeals,
	"meal":  ItemMeals,
	"food":  ItemMeals,
	"식대":    ItemMeals,
	"식비":    ItemMeals,

	"utilities":   ItemUtilities,
	"utility":     ItemUtilities,
	"electricity": ItemUtilities,
	"공과금":         ItemUtilities,
	"전기세":         ItemUtilities,

	"equipment": ItemEquipment,
	"tools":     ItemEquipment,
	"장비":        ItemEquipment,
	"장비대여":      ItemEquipment,

	"other": ItemOther,
	"etc":   ItemOther,
	"misc":  ItemOther,
	"기타":    ItemOther,
	"기타공제":  ItemOther,
}

// CanonicalItemID maps a record key onto a catalog id: an exact catalog id
// first, then the alias table. ok is false when neither knows the key.
func CanonicalItemID(key string, catalog []settlement.DeductionItem) (string, bool) {
	for _, it := range catalog {
		if it.ID == key {
			return it.ID, true
		}
	}
	id, ok := itemAliases[settlement.NormalizeTag(key)]
	if !ok {
		return "", false
	}
	for _, it := range catalog {
		if it.ID == id {
			return id, true
		}
	}
	return "", false
}

// =============================================================================
// DEDUCTION LINES
// =============================================================================

// Line is one itemized deduction.
type Line struct {
	ID        string
	Label     string
	Amount    decimal.Decimal
	Synthetic bool
}

// UnmappedAmount is a record amount that reached no active catalog line.
type UnmappedAmount struct {
	Key    string
	Amount decimal.Decimal
}

// Lines is the itemized advance deduction of one record.
type Lines struct {
	Items    []Line
	Total    decimal.Decimal // sum of Items, synthetic line included
	Unmapped []UnmappedAmount
}

// DeductionLines enumerates the active catalog in order and looks up each
// item's amount on the record. Legacy keys are merged onto their canonical
// id. When the record's total override exceeds the itemized sum, the
// remainder is added as one synthetic line.
func DeductionLines(cfg settlement.PayrollConfig, rec settlement.AdvancePaymentRecord) Lines {
	catalog := cfg.DeductionItemCatalog
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	active := make(map[string]bool)
	for _, it := range catalog {
		if it.Active {
			active[it.ID] = true
		}
	}

	keys := make([]string, 0, len(rec.PerItemAmounts))
	for k := range rec.PerItemAmounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make(map[string]decimal.Decimal)
	var out Lines
	for _, k := range keys {
		amount := settlement.Decimal(rec.PerItemAmounts[k])
		id, ok := CanonicalItemID(k, catalog)
		if !ok || !active[id] {
			if !amount.IsZero() {
				out.Unmapped = append(out.Unmapped, UnmappedAmount{Key: k, Amount: amount})
			}
			continue
		}
		merged[id] = merged[id].Add(amount)
	}

	out.Total = decimal.Zero
	for _, it := range catalog {
		if !it.Active {
			continue
		}
		line := Line{ID: it.ID, Label: it.Label, Amount: settlement.RoundHalfUp(merged[it.ID])}
		out.Items = append(out.Items, line)
		out.Total = out.Total.Add(line.Amount)
	}

	if rec.TotalDeductionOverride != nil {
		override := settlement.RoundHalfUp(settlement.Decimal(*rec.TotalDeductionOverride))
		if rest := override.Sub(out.Total); rest.IsPositive() {
			out.Items = append(out.Items, Line{
				ID:        OverrideLineID,
				Label:     "기타 공제(총액 조정)",
				Amount:    rest,
				Synthetic: true,
			})
			out.Total = override
		}
	}
	return out
}
