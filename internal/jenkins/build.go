package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/Cloudsky01/qatrun/pkg/models"
)

// LastSuccessfulBuild fetches the build description served at apiURL,
// typically <job>/lastSuccessfulBuild/api/json.
func (c *Client) LastSuccessfulBuild(ctx context.Context, apiURL string) (*models.Build, error) {
	res, err := c.Get(apiURL, func(r *resty.Request) {
		r.SetContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch build data from %s: %w", apiURL, err)
	}

	build := &models.Build{}
	if err := json.Unmarshal(res.Body(), build); err != nil {
		return nil, fmt.Errorf("failed to parse build data: %w", err)
	}

	c.log.Debugw("fetched build", "number", build.Number, "result", build.Result, "artifacts", len(build.Artifacts))
	return build, nil
}

// FindArtifact returns the first artifact whose file name ends with ext, with
// its download URL set to baseURL followed by the artifact's relative path.
func FindArtifact(build *models.Build, ext, baseURL string) (*models.Artifact, bool) {
	if build == nil {
		return nil, false
	}

	for _, a := range build.Artifacts {
		if a == nil || !strings.HasSuffix(a.FileName, ext) {
			continue
		}
		found := *a
		found.URL = baseURL + a.RelativePath
		return &found, true
	}

	return nil, false
}
