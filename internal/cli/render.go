package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/ir"
)

// csvHeader is the bulk export header.
var csvHeader = []string{
	"MSISDN", "Order ID", "Order Type", "Validation Status",
	"Has Multiple Orders", "Order Count", "Success Rate", "Errors",
}

var statusMarks = map[ir.Status]string{
	ir.StatusPass:             "✓",
	ir.StatusPassWithWarnings: "!",
	ir.StatusFail:             "✗",
	ir.StatusNotValidated:     "-",
	ir.StatusError:            "✗",
}

// failed reports whether a result should fail the command.
func failed(r ir.ValidationResult) bool {
	return r.Status == ir.StatusFail || r.Status == ir.StatusError
}

// writeResultText prints one result with its non-passing outcomes; verbose
// prints every outcome.
func writeResultText(w io.Writer, r ir.ValidationResult, verbose bool) {
	fmt.Fprintf(w, "%s %s %s", statusMarks[r.Status], r.Subscriber, r.Status)
	if r.OrderID != "" {
		fmt.Fprintf(w, " (order %s, %s)", r.OrderID, r.OrderType)
	}
	fmt.Fprintln(w)

	if r.Error != nil {
		fmt.Fprintf(w, "  %s: %s\n", r.Error.Code, r.Error.Message)
		return
	}
	for _, o := range r.Outcomes {
		if o.Result == ir.ResultPass && !verbose {
			continue
		}
		if o.Result == ir.ResultNotApplicable && !verbose {
			continue
		}
		line := fmt.Sprintf("  %-14s %s", o.Result, o.RuleID)
		if o.Severity == ir.SeverityAdvisory {
			line += " [advisory]"
		}
		if o.Reason != "" {
			line += ": " + o.Reason
		}
		fmt.Fprintln(w, line)
	}
}

func writeRunText(w io.Writer, run engine.Run, verbose bool) {
	for _, r := range run.Results {
		writeResultText(w, r, verbose)
	}
	s := run.Summary
	fmt.Fprintf(w, "\nRun %s: %d subscriber(s), %d passed, %d with warnings, %d failed, %d not validated, %d error(s), success rate %.2f%%\n",
		run.ID, s.Total, s.Passed, s.PassedWithWarnings, s.Failed, s.NotValidated, s.Errors, s.SuccessRate)
}

// writeRunCSV writes one row per subscriber. Errors holds the error
// message for error results and the failing reasons otherwise.
func writeRunCSV(w io.Writer, run engine.Run) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	for _, r := range run.Results {
		row := []string{
			r.Subscriber,
			r.OrderID,
			r.OrderType,
			string(r.Status),
			strconv.FormatBool(r.HasMultipleOrders),
			strconv.Itoa(r.OrderCount),
			successRate(r),
			resultErrors(r),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func successRate(r ir.ValidationResult) string {
	if r.Error != nil {
		return "N/A"
	}
	return strconv.FormatFloat(r.Checks.SuccessRate, 'f', 2, 64) + "%"
}

func resultErrors(r ir.ValidationResult) string {
	if r.Error != nil {
		return r.Error.Message
	}
	var msgs []string
	for _, o := range r.Failures() {
		msgs = append(msgs, o.RuleID+": "+o.Reason)
	}
	return strings.Join(msgs, "; ")
}
