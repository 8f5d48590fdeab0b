package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Violation is a single finding reported by a linter.
type Violation struct {
	File     string
	Line     int
	Column   int
	Rule     string
	Message  string
	Severity Severity
}

// Severity represents the severity of a violation
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity maps a linter's severity label to a Severity.
func ParseSeverity(label string) Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "error", "err", "2":
		return SeverityError
	case "warning", "warn", "1":
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// String formats the violation as file:line:col: severity: message (rule).
func (v Violation) String() string {
	s := fmt.Sprintf("%s:%d:%d: %s: %s", v.File, v.Line, v.Column, v.Severity, v.Message)
	if v.Rule != "" {
		s += " (" + v.Rule + ")"
	}
	return s
}

// LintError aggregates every violation a linter reported in one run.
type LintError struct {
	Tool       string
	Violations []Violation
}

// Error implements the error interface
func (le *LintError) Error() string {
	if len(le.Violations) == 1 {
		return fmt.Sprintf("%s: %s", le.Tool, le.Violations[0])
	}
	return fmt.Sprintf("%s: %d violations", le.Tool, len(le.Violations))
}

// Report renders all violations one per line.
func (le *LintError) Report() string {
	var b strings.Builder
	for _, v := range le.Violations {
		b.WriteString(v.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ViolationCollector collects violations from a linter report.
type ViolationCollector struct {
	violations []Violation
	threshold  Severity
	mutex      sync.RWMutex
}

// NewViolationCollector creates a collector that drops violations below threshold.
func NewViolationCollector(threshold Severity) *ViolationCollector {
	return &ViolationCollector{
		violations: make([]Violation, 0),
		threshold:  threshold,
	}
}

// Add adds a violation to the collector
func (vc *ViolationCollector) Add(v Violation) {
	if v.Severity < vc.threshold {
		return
	}
	vc.mutex.Lock()
	defer vc.mutex.Unlock()
	vc.violations = append(vc.violations, v)
}

// Violations returns collected violations ordered by file and position.
func (vc *ViolationCollector) Violations() []Violation {
	vc.mutex.RLock()
	defer vc.mutex.RUnlock()
	result := make([]Violation, len(vc.violations))
	copy(result, vc.violations)
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].File != result[j].File {
			return result[i].File < result[j].File
		}
		if result[i].Line != result[j].Line {
			return result[i].Line < result[j].Line
		}
		return result[i].Column < result[j].Column
	})
	return result
}

// HasViolations returns true if there are any violations
func (vc *ViolationCollector) HasViolations() bool {
	vc.mutex.RLock()
	defer vc.mutex.RUnlock()
	return len(vc.violations) > 0
}

// Err returns a LintError for tool, or nil when nothing was collected.
func (vc *ViolationCollector) Err(tool string) error {
	if !vc.HasViolations() {
		return nil
	}
	return &LintError{Tool: tool, Violations: vc.Violations()}
}

// LintErrors collects the lint failures in an error tree, including those
// joined by errors.Join.
func LintErrors(err error) []*LintError {
	var out []*LintError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case nil:
			return
		case *LintError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		default:
			walk(errors.Unwrap(e))
		}
	}
	walk(err)
	return out
}
