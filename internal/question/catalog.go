// Package question selects a fair subset of the questions the tax authority
// returns for a subject.
package question

// Category is an independent source of evidence a question draws on.
type Category string

const (
	CategoryPAYE           Category = "paye"
	CategorySelfAssessment Category = "self_assessment"
	CategoryTaxCredits     Category = "tax_credits"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryPAYE, CategorySelfAssessment, CategoryTaxCredits}

// Catalog classifies question keys. It is a flat lookup table.
type Catalog struct {
	lowConfidence map[string]struct{}
	categories    map[string]Category
}

// NewCatalog builds a catalog from a low-confidence key list and per-category
// key lists. A key listed under several categories keeps the last one.
func NewCatalog(lowConfidence []string, members map[Category][]string) *Catalog {
	c := &Catalog{
		lowConfidence: make(map[string]struct{}, len(lowConfidence)),
		categories:    make(map[string]Category),
	}
	for _, key := range lowConfidence {
		c.lowConfidence[key] = struct{}{}
	}
	for _, cat := range Categories {
		for _, key := range members[cat] {
			c.categories[key] = cat
		}
	}
	return c
}

// DefaultCatalog is the production classification.
var DefaultCatalog = NewCatalog(
	[]string{"ita-bankaccount"},
	map[Category][]string{
		CategoryPAYE: {
			"rti-p60-payment-for-year",
			"rti-p60-employee-ni-contributions",
			"rti-p60-earnings-above-pt",
			"rti-p60-postgraduate-loan-deductions",
			"rti-p60-statutory-maternity-pay",
			"rti-p60-statutory-shared-parental-pay",
			"rti-p60-statutory-adoption-pay",
			"rti-p60-student-loan-deductions",
			"rti-payslip-income-tax",
			"rti-payslip-national-insurance",
		},
		CategorySelfAssessment: {
			"sa-payment-details",
			"sa-income-from-pensions",
		},
		CategoryTaxCredits: {
			"tc-amount",
		},
	},
)

// IsLowConfidence reports whether key is excluded from selection.
func (c *Catalog) IsLowConfidence(key string) bool {
	_, ok := c.lowConfidence[key]
	return ok
}

// CategoryOf returns the category key belongs to.
func (c *Catalog) CategoryOf(key string) (Category, bool) {
	cat, ok := c.categories[key]
	return cat, ok
}
