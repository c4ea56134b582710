package models

import "time"

// TestResult is the outcome of a single smoke check.
// Message is empty when the check has nothing to report.
type TestResult struct {
	Name     string
	Passed   bool
	Skipped  bool
	Message  string
	Duration time.Duration
}

func NewPassedResult(name, message string) TestResult {
	return TestResult{Name: name, Passed: true, Message: message}
}

func NewFailedResult(name, message string) TestResult {
	return TestResult{Name: name, Message: message}
}

// NewSkippedResult records a check that was not attempted because a previous
// phase did not produce the data it needs. It counts as a failure.
func NewSkippedResult(name, reason string) TestResult {
	return TestResult{Name: name, Skipped: true, Message: "Skipped (" + reason + ")"}
}

// WithDuration returns a copy of the result with the duration set.
func (r TestResult) WithDuration(d time.Duration) TestResult {
	r.Duration = d
	return r
}

// StatusString returns PASS or FAIL.
func (r TestResult) StatusString() string {
	if r.Passed {
		return "PASS"
	}
	return "FAIL"
}
