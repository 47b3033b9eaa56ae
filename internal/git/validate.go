package git

import (
	"fmt"
	"regexp"
)

var repoFormatRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// ValidateRepositoryFormat validates that a repository string is in the correct owner/repo format
func ValidateRepositoryFormat(repo string) error {
	if !repoFormatRegex.MatchString(repo) {
		return fmt.Errorf("invalid repository format: %q - expected format: owner/repo", repo)
	}

	return nil
}
