package git

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DetectRemoteURL returns the origin remote URL of the git working copy that
// contains the current directory.
func DetectRemoteURL() (string, error) {
	gitConfigPath, err := findGitConfig()
	if err != nil {
		return "", err
	}

	return parseGitConfig(gitConfigPath)
}

// ParseRepoURL extracts the owner and repository name from a remote URL.
// Handles:
//   - https://github.com/owner/repo(.git)
//   - https://ghe.example.com/owner/repo(.git)
//   - ssh://git@github.com/owner/repo(.git)
//   - git@github.com:owner/repo(.git)
func ParseRepoURL(remote string) (owner, repo string, err error) {
	full := extractRepoFromURL(strings.TrimSpace(remote))
	if full == "" {
		return "", "", fmt.Errorf("invalid repository URL %q: expected <host>/owner/repo", remote)
	}

	owner, repo, _ = strings.Cut(full, "/")
	return owner, repo, nil
}

// findGitConfig locates the .git/config file by searching upward from current directory
func findGitConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}

	// Search up to 10 levels deep
	for range 10 {
		configPath := filepath.Join(cwd, ".git", "config")

		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return "", fmt.Errorf("no .git/config found - not in a git repository")
}

// parseGitConfig reads the git config file and returns the origin remote URL
func parseGitConfig(configPath string) (string, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to read git config: %w", err)
	}

	var inOriginSection bool

	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") {
			inOriginSection = strings.HasPrefix(trimmed, "[remote") && strings.Contains(trimmed, `"origin"`)
			continue
		}

		if inOriginSection && strings.HasPrefix(trimmed, "url") {
			key, value, ok := strings.Cut(trimmed, "=")
			if ok && strings.TrimSpace(key) == "url" {
				if remote := strings.TrimSpace(value); remote != "" {
					return remote, nil
				}
			}
		}
	}

	return "", fmt.Errorf("no origin remote found in git config")
}

// extractRepoFromURL converts the supported remote URL formats to owner/repo
func extractRepoFromURL(remote string) string {
	var path string

	switch {
	case strings.Contains(remote, "://"):
		u, err := url.Parse(remote)
		if err != nil || u.Host == "" {
			return ""
		}
		path = u.Path
	case strings.Contains(remote, "@") && strings.Contains(remote, ":"):
		// scp-like syntax: git@host:owner/repo.git
		_, path, _ = strings.Cut(remote, ":")
	default:
		return ""
	}

	repo := strings.Trim(path, "/")
	repo = strings.TrimSuffix(repo, ".git")
	if isValidRepoFormat(repo) {
		return repo
	}
	return ""
}

// isValidRepoFormat checks if string is in owner/repo format
func isValidRepoFormat(repo string) bool {
	return ValidateRepositoryFormat(repo) == nil
}
