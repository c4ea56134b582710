package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/faultmaven/faultmaven-smoke/internal/models"
)

var (
	bold    = color.New(color.Bold).SprintFunc()
	cyan    = color.New(color.FgCyan).SprintFunc()
	boldCy  = color.New(color.Bold, color.FgCyan).SprintFunc()
	green   = color.New(color.FgGreen).SprintFunc()
	red     = color.New(color.FgRed).SprintFunc()
	yellow  = color.New(color.FgYellow).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
	boldGrn = color.New(color.Bold, color.FgGreen).SprintFunc()
	boldRed = color.New(color.Bold, color.FgRed).SprintFunc()
)

// Reporter accumulates check results in execution order and renders them.
// It is owned by a single run and is not safe for concurrent use.
type Reporter struct {
	out     io.Writer
	now     func() time.Time
	start   time.Time
	results []models.TestResult
}

func NewReporter(out io.Writer) *Reporter {
	return newReporter(out, time.Now)
}

func newReporter(out io.Writer, now func() time.Time) *Reporter {
	return &Reporter{
		out:   out,
		now:   now,
		start: now(),
	}
}

func (r *Reporter) StartedAt() time.Time {
	return r.start
}

// Banner prints the run header.
func (r *Reporter) Banner(apiURL, runID string) {
	fmt.Fprintf(r.out, "\n%s\n", boldCy("🚀 FaultMaven E2E Smoke Test"))
	fmt.Fprintf(r.out, "API URL: %s\n", apiURL)
	fmt.Fprintf(r.out, "Run ID: %s\n", runID)
	fmt.Fprintf(r.out, "Started: %s\n", r.start.Format(time.DateTime))
}

// Section prints a phase heading.
func (r *Reporter) Section(title string) {
	fmt.Fprintf(r.out, "\n%s\n", bold(title))
}

// Warn prints a highlighted notice that is not a check result.
func (r *Reporter) Warn(msg string) {
	fmt.Fprintf(r.out, "\n%s\n", yellow("⚠️  "+msg))
}

// Error prints a highlighted error that is not a check result.
func (r *Reporter) Error(msg string) {
	fmt.Fprintf(r.out, "\n%s\n", red("❌ "+msg))
}

// Add records a result and prints its line.
func (r *Reporter) Add(result models.TestResult) {
	r.results = append(r.results, result)

	icon, status := "✅", green("PASS")
	if !result.Passed {
		icon, status = "❌", red("FAIL")
	}
	msg := ""
	if result.Message != "" {
		msg = " - " + result.Message
	}
	fmt.Fprintf(r.out, "%s %s: %s%s\n", icon, result.Name, status, msg)
}

// Results returns a copy of the recorded results.
func (r *Reporter) Results() []models.TestResult {
	return append([]models.TestResult(nil), r.results...)
}

func (r *Reporter) Total() int {
	return len(r.results)
}

func (r *Reporter) Passed() int {
	n := 0
	for _, res := range r.results {
		if res.Passed {
			n++
		}
	}
	return n
}

// Success is true iff every recorded result passed.
func (r *Reporter) Success() bool {
	return r.Passed() == r.Total()
}

func (r *Reporter) Elapsed() time.Duration {
	return r.now().Sub(r.start)
}

// Summary renders the results table and the pass count, and returns Success.
func (r *Reporter) Summary() bool {
	fmt.Fprintf(r.out, "\n\n%s\n\n", bold("Smoke Test Results"))

	// tabwriter counts colour escapes as width, so every cell of a column
	// carries escapes of the same length.
	tw := tabwriter.NewWriter(r.out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\n", cyan("Test"), cyan("Status"), faint("Details"))
	for _, res := range r.results {
		status := green("✓ PASS")
		if !res.Passed {
			status = red("✗ FAIL")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cyan(res.Name), status, faint(res.Message))
	}
	tw.Flush()

	total, passed := r.Total(), r.Passed()
	failed := total - passed
	fmt.Fprintf(r.out, "\n📊 Summary: %d/%d tests passed (%.1fs)\n", passed, total, r.Elapsed().Seconds())

	if failed == 0 {
		fmt.Fprintln(r.out, boldGrn("🎉 All tests passed! FaultMaven is operational."))
		return true
	}
	fmt.Fprintln(r.out, boldRed(fmt.Sprintf("❌ %d test(s) failed. Check logs for details.", failed)))
	return false
}
