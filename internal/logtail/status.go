package logtail

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedStatus = errors.New("malformed status line")

const statusSeparator = "::"

// ParseStatus extracts the status from a status line of the form
//
//	<prefix> ::<key>: <value>[:<more>][::<rest>]
//
// The status is <value> with surrounding whitespace removed.
func ParseStatus(line string) (string, error) {
	parts := strings.SplitN(line, statusSeparator, 3)
	if len(parts) < 2 {
		return "", fmt.Errorf("%w: no %q in %q", ErrMalformedStatus, statusSeparator, line)
	}

	fields := strings.Split(parts[1], ":")
	if len(fields) < 2 {
		return "", fmt.Errorf("%w: expected key: value in %q", ErrMalformedStatus, parts[1])
	}

	status := strings.TrimSpace(fields[1])
	if status == "" {
		return "", fmt.Errorf("%w: empty status in %q", ErrMalformedStatus, line)
	}

	return status, nil
}
