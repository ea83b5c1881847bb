package ingest

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts holds the seven monetary columns of a budget execution line.
type Amounts struct {
	InitialBudget decimal.Decimal `json:"initial_budget"`
	Addition      decimal.Decimal `json:"addition"`
	Reduction     decimal.Decimal `json:"reduction"`
	Credit        decimal.Decimal `json:"credit"`
	CounterCredit decimal.Decimal `json:"counter_credit"`
	FinalBudget   decimal.Decimal `json:"final_budget"`
	Payments      decimal.Decimal `json:"payments"`
}

func ZeroAmounts() Amounts {
	z := zeroAmount()
	return Amounts{z, z, z, z, z, z, z}
}

func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		InitialBudget: a.InitialBudget.Add(b.InitialBudget),
		Addition:      a.Addition.Add(b.Addition),
		Reduction:     a.Reduction.Add(b.Reduction),
		Credit:        a.Credit.Add(b.Credit),
		CounterCredit: a.CounterCredit.Add(b.CounterCredit),
		FinalBudget:   a.FinalBudget.Add(b.FinalBudget),
		Payments:      a.Payments.Add(b.Payments),
	}
}

// ComputedFinal is initial + addition - reduction + credit - counter credit.
func (a Amounts) ComputedFinal() decimal.Decimal {
	return a.InitialBudget.
		Add(a.Addition).
		Sub(a.Reduction).
		Add(a.Credit).
		Sub(a.CounterCredit).
		Round(amountPlaces)
}

func (a Amounts) othersNonZero() bool {
	for _, d := range []decimal.Decimal{a.InitialBudget, a.Addition, a.Reduction, a.Credit, a.CounterCredit, a.Payments} {
		if !d.IsZero() {
			return true
		}
	}
	return false
}

// withFallbackFinal fills in a missing final budget from the movement
// columns. Movements that net below zero leave a final budget of 0.00.
func (a Amounts) withFallbackFinal() Amounts {
	if a.FinalBudget.IsZero() && a.othersNonZero() {
		a.FinalBudget = clampAmount(a.ComputedFinal())
	}
	return a
}

func rowAmounts(r Row) Amounts {
	return Amounts{
		InitialBudget: ParseAmount(r.Get(ColPtoInicial)),
		Addition:      ParseAmount(r.Get(ColAdicion)),
		Reduction:     ParseAmount(r.Get(ColReduccion)),
		Credit:        ParseAmount(r.Get(ColCredito)),
		CounterCredit: ParseAmount(r.Get(ColContracredito)),
		FinalBudget:   ParseAmount(r.Get(ColPtoDefinitivo)),
		Payments:      ParseAmount(r.Get(ColPagos)),
	}.withFallbackFinal()
}

// Key identifies an aggregated line within one upload.
type Key struct {
	ProductCode   string
	FundingSource string
}

// Line is an aggregated ledger line before it is attached to an organization.
type Line struct {
	ProductCode   string `json:"product_code"`
	FundingSource string `json:"funding_source_label"`
	Sector        string `json:"sector"`
	Dependency    string `json:"dependency"`
	Bpin          string `json:"bpin"`
	Amounts
	SourceRows int `json:"source_rows"`
}

func (l Line) Key() Key {
	return Key{ProductCode: l.ProductCode, FundingSource: l.FundingSource}
}

// merge folds incoming into existing. Amounts are summed; the descriptive
// fields of existing are kept, so the first row seen in file order wins.
func merge(existing, incoming Line) Line {
	existing.Amounts = existing.Amounts.Add(incoming.Amounts)
	existing.SourceRows += incoming.SourceRows
	return existing
}

// Aggregation is an insertion-ordered map from Key to Line.
type Aggregation struct {
	keys  []Key
	lines map[Key]Line
}

func NewAggregation() *Aggregation {
	return &Aggregation{lines: make(map[Key]Line)}
}

func (a *Aggregation) Put(l Line) {
	k := l.Key()
	if existing, ok := a.lines[k]; ok {
		a.lines[k] = merge(existing, l)
		return
	}
	a.keys = append(a.keys, k)
	a.lines[k] = l
}

func (a *Aggregation) Get(k Key) (Line, bool) {
	l, ok := a.lines[k]
	return l, ok
}

func (a *Aggregation) Len() int {
	return len(a.keys)
}

// Lines returns the aggregated lines in first-seen order.
func (a *Aggregation) Lines() []Line {
	out := make([]Line, 0, len(a.keys))
	for _, k := range a.keys {
		out = append(out, a.lines[k])
	}
	return out
}

// lineFromRow converts a filtered row, failing when no product code can be
// extracted from its PRODUCTO label.
func lineFromRow(r Row) (Line, *RowExtractionError) {
	label := r.Get(ColProducto)
	code := ExtractProductCode(label)
	if code == "" {
		return Line{}, &RowExtractionError{Line: r.Line, Label: label}
	}
	return Line{
		ProductCode:   code,
		FundingSource: strings.TrimSpace(r.Get(ColDescripcion)),
		Sector:        strings.TrimSpace(r.Get(ColSector)),
		Dependency:    strings.TrimSpace(r.Get(ColDependencia)),
		Bpin:          strings.TrimSpace(r.Get(ColBpin)),
		Amounts:       rowAmounts(r),
		SourceRows:    1,
	}, nil
}

// Aggregate folds rows in file order. Rows without a product code are skipped
// and reported; they never abort the fold.
//
// A row with a zero PTO DEFINITIVO gets its computed final budget before it is
// summed into its key, so every row contributes the same amount whatever its
// position among the rows sharing that key.
func Aggregate(rows []Row) (*Aggregation, []*RowExtractionError) {
	agg := NewAggregation()
	var rowErrs []*RowExtractionError
	for _, r := range rows {
		l, rerr := lineFromRow(r)
		if rerr != nil {
			rowErrs = append(rowErrs, rerr)
			continue
		}
		agg.Put(l)
	}
	return agg, rowErrs
}
