package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v35/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/Cloudsky01/qatrun/internal/log"
	"github.com/Cloudsky01/qatrun/pkg/models"
)

const branchPageSize = 100

var ErrNoBranches = errors.New("repository has no branches")

type Config struct {
	// APIURL is the REST API root, e.g. https://api.github.com/ or
	// https://ghe.example.com/api/v3/.
	APIURL string
	Token  string
}

type Client struct {
	gh  *github.Client
	log *zap.SugaredLogger
}

func NewClient(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}

	var httpClient *http.Client
	if cfg.Token != "" {
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}

	gh := github.NewClient(httpClient)
	if cfg.APIURL != "" {
		base := cfg.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", cfg.APIURL, err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, log: logger}, nil
}

// ListBranches returns the names of every branch, following pagination.
func (c *Client) ListBranches(ctx context.Context, owner, repo string) ([]string, error) {
	opt := &github.BranchListOptions{
		ListOptions: github.ListOptions{PerPage: branchPageSize},
	}

	var names []string
	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opt)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches of %s/%s: %w", owner, repo, err)
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return names, nil
}

// HeadCommit fetches the commit a branch currently points at.
func (c *Client) HeadCommit(ctx context.Context, owner, repo, branch string) (*models.Commit, error) {
	rc, _, err := c.gh.Repositories.GetCommit(ctx, owner, repo, branch)
	if err != nil {
		return nil, fmt.Errorf("failed to get head commit of branch %q: %w", branch, err)
	}

	commit := toCommit(rc)
	commit.Branch = branch
	return commit, nil
}

// ChangedFiles fetches the commit behind filesURL and returns the paths it
// touched, in the order the API lists them.
func (c *Client) ChangedFiles(ctx context.Context, filesURL string) ([]string, error) {
	req, err := c.gh.NewRequest(http.MethodGet, filesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build commit request: %w", err)
	}

	var rc github.RepositoryCommit
	if _, err := c.gh.Do(ctx, req, &rc); err != nil {
		return nil, fmt.Errorf("failed to fetch commit files: %w", err)
	}

	files := make([]string, 0, len(rc.Files))
	for _, f := range rc.Files {
		files = append(files, f.GetFilename())
	}
	return files, nil
}

// FindLatestCommit scans the head commit of every branch and returns the most
// recent one, with its changed files filled in.
func (c *Client) FindLatestCommit(ctx context.Context, owner, repo string) (*models.Commit, error) {
	branches, err := c.ListBranches(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if len(branches) == 0 {
		return nil, ErrNoBranches
	}

	var latest *models.Commit
	for _, branch := range branches {
		commit, err := c.HeadCommit(ctx, owner, repo, branch)
		if err != nil {
			return nil, err
		}
		c.log.Debugw("branch head", "branch", branch, "sha", commit.SHA, "date", commit.Date)

		if latest == nil || commit.Date.After(latest.Date) {
			latest = commit
		}
	}

	files, err := c.ChangedFiles(ctx, latest.FilesURL)
	if err != nil {
		return nil, err
	}
	latest.FilesChanged = files

	c.log.Infow("latest commit", "branch", latest.Branch, "sha", latest.SHA, "author", latest.AuthorName, "files", len(files))
	return latest, nil
}

func toCommit(rc *github.RepositoryCommit) *models.Commit {
	date := rc.GetCommit().GetCommitter().GetDate()
	if date.IsZero() {
		date = rc.GetCommit().GetAuthor().GetDate()
	}

	return &models.Commit{
		SHA:        rc.GetSHA(),
		Message:    rc.GetCommit().GetMessage(),
		AuthorName: rc.GetCommit().GetAuthor().GetName(),
		Date:       date,
		FilesURL:   rc.GetURL(),
	}
}
