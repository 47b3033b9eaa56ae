package suites

import "fmt"

type SuiteResult struct {
	Suite string
	Found bool
}

type Report struct {
	// UncheckDone is false when Apply failed before any suite was checked.
	UncheckDone   bool
	Unchecked     int
	Suites        []SuiteResult
	EmailsUpdated int
}

type ApplyOptions struct {
	UpdateEmail bool
	EmailText   string
}

// Apply unchecks every suite, checks the given ones in order and optionally
// rewrites the email description. It stops at the first error; the report
// covers the steps completed so far.
func Apply(e *Editor, suites []string, opts ApplyOptions) (*Report, error) {
	report := &Report{}

	n, err := e.UncheckAll()
	if err != nil {
		return report, fmt.Errorf("failed to uncheck test suites: %w", err)
	}
	report.Unchecked = n
	report.UncheckDone = true

	for _, suite := range suites {
		found, err := e.CheckSuite(suite)
		if err != nil {
			return report, fmt.Errorf("failed to check test suite %q: %w", suite, err)
		}
		report.Suites = append(report.Suites, SuiteResult{Suite: suite, Found: found})
	}

	if opts.UpdateEmail {
		n, err := e.UpdateEmailDescription(opts.EmailText)
		if err != nil {
			return report, fmt.Errorf("failed to update email description: %w", err)
		}
		report.EmailsUpdated = n
	}

	return report, nil
}
