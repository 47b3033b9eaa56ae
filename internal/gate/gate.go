package gate

import (
	"fmt"

	"github.com/Cloudsky01/qatrun/internal/logtail"
)

const DefaultSuccessStatus = "Pass"

type Verdict struct {
	Passed bool
	Status string
	Reason string
}

// FailureError is returned for any run that did not report the success
// status. The command layer turns it into a non-zero exit code.
type FailureError struct {
	Verdict Verdict
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("test run failed: %s", e.Verdict.Reason)
}

type Gate struct {
	successStatus string
}

func New(successStatus string) *Gate {
	if successStatus == "" {
		successStatus = DefaultSuccessStatus
	}
	return &Gate{successStatus: successStatus}
}

// Evaluate maps a tail outcome to a verdict. tailErr is the error the tail
// ended with, if any; a run that never completed, or that logged an
// unreadable status line, is a failure even when a success status was seen.
func (g *Gate) Evaluate(result *logtail.Result, tailErr error) (Verdict, error) {
	v := Verdict{}
	if result != nil {
		v.Status = result.Status
	}

	switch {
	case tailErr != nil:
		v.Reason = tailErr.Error()
	case result != nil && result.StatusErr != nil:
		v.Reason = result.StatusErr.Error()
	case result == nil || !result.Found:
		v.Reason = "no status was reported before completion"
	case result.Status != g.successStatus:
		v.Reason = fmt.Sprintf("status %q is not %q", result.Status, g.successStatus)
	default:
		v.Passed = true
		return v, nil
	}

	return v, &FailureError{Verdict: v}
}
