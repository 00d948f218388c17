package aggregate

import "github.com/esungul/UniveralValidator/internal/ir"

// Summary tallies a batch of results by status.
type Summary struct {
	Total              int     `json:"total"`
	Passed             int     `json:"passed"`
	PassedWithWarnings int     `json:"passed_with_warnings"`
	Failed             int     `json:"failed"`
	NotValidated       int     `json:"not_validated"`
	Errors             int     `json:"errors"`
	SuccessRate        float64 `json:"success_rate"`
}

// Summarize counts results. SuccessRate is passed plus passed-with-warnings
// over the total, as a percentage rounded to two decimals.
func Summarize(results []ir.ValidationResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case ir.StatusPass:
			s.Passed++
		case ir.StatusPassWithWarnings:
			s.PassedWithWarnings++
		case ir.StatusFail:
			s.Failed++
		case ir.StatusNotValidated:
			s.NotValidated++
		default:
			s.Errors++
		}
	}
	s.SuccessRate = Percent(s.Passed+s.PassedWithWarnings, s.Total)
	return s
}

// OK reports whether no result failed or errored.
func (s Summary) OK() bool {
	return s.Failed == 0 && s.Errors == 0
}
