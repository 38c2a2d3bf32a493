// Package export turns settled rows into bank transfer file tuples.
package export

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/bank"
	"github.com/warp/settlement-engine/settlement"
)

// Transfer file field widths, in characters.
const (
	DepositDisplayMax    = 10
	WithdrawalDisplayMax = 14
)

// Options configures the default display texts.
type Options struct {
	DepositSuffix    string
	WithdrawalSuffix string
}

// Override replaces the computed display texts of one row. Blank fields
// keep the computed default.
type Override struct {
	DepositDisplay    string
	WithdrawalDisplay string
}

// Tuple is one line of the bank transfer file.
type Tuple struct {
	RowKey            string
	PayeeName         string
	BankName          string
	BankCode          bank.Code
	AccountNumber     string
	AccountHolder     string
	TransferAmount    decimal.Decimal
	DepositDisplay    string
	WithdrawalDisplay string
	IsValid           bool
}

// NetFunc returns the amount to transfer for a row.
type NetFunc func(settlement.TransferRow) decimal.Decimal

// Builder builds transfer tuples.
type Builder struct {
	opts      Options
	net       NetFunc
	overrides map[string]Override
}

// NewBuilder creates a builder. A nil net transfers the row total.
func NewBuilder(opts Options, net NetFunc) *Builder {
	if net == nil {
		net = func(r settlement.TransferRow) decimal.Decimal { return r.TotalAmount }
	}
	return &Builder{opts: opts, net: net, overrides: make(map[string]Override)}
}

// SetOverride registers display overrides for a row key.
func (b *Builder) SetOverride(rowKey string, o Override) {
	b.overrides[rowKey] = o
}

// Build produces the tuple of one row.
func (b *Builder) Build(row settlement.TransferRow) Tuple {
	o := b.overrides[row.RowKey]

	deposit := o.DepositDisplay
	if strings.TrimSpace(deposit) == "" {
		deposit = row.PayeeName + b.opts.DepositSuffix
	}
	withdrawal := o.WithdrawalDisplay
	if strings.TrimSpace(withdrawal) == "" {
		withdrawal = row.PayeeName + b.opts.WithdrawalSuffix
	}

	return Tuple{
		RowKey:            row.RowKey,
		PayeeName:         row.PayeeName,
		BankName:          row.BankName,
		BankCode:          row.BankCode,
		AccountNumber:     NormalizeAccountNumber(row.AccountNumber),
		AccountHolder:     row.AccountHolder,
		TransferAmount:    b.net(row),
		DepositDisplay:    Truncate(deposit, DepositDisplayMax),
		WithdrawalDisplay: Truncate(withdrawal, WithdrawalDisplayMax),
		IsValid:           row.IsValid,
	}
}

// BuildAll produces tuples in row order.
func (b *Builder) BuildAll(rows []settlement.TransferRow) []Tuple {
	out := make([]Tuple, 0, len(rows))
	for _, row := range rows {
		out = append(out, b.Build(row))
	}
	return out
}

// Truncate trims s and cuts it to at most max characters. It never pads,
// and a space left at the end of the cut is kept.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// NormalizeAccountNumber keeps only the digits of an account number.
func NormalizeAccountNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
