package models

import "time"

// Build represents a Jenkins build as returned by the build's api/json endpoint
type Build struct {
	Number    int         `json:"number"`
	Result    string      `json:"result"`
	URL       string      `json:"url"`
	Timestamp int64       `json:"timestamp"`
	Artifacts []*Artifact `json:"artifacts"`
}

// Artifact represents a single archived build output.
// URL is not part of the Jenkins response; it is filled in by the locator.
type Artifact struct {
	FileName     string `json:"fileName"`
	RelativePath string `json:"relativePath"`
	URL          string `json:"-"`
}

// Commit represents the head commit of a branch
type Commit struct {
	SHA          string
	Branch       string
	Message      string
	AuthorName   string
	Date         time.Time
	FilesURL     string
	FilesChanged []string
}
