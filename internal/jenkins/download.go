package jenkins

import (
	"context"
	"errors"
	"fmt"
	"io"
)

const chunkSize = 1024

// Progress receives download progress. Start is called once with the expected
// size (0 when the server did not announce one), then Add per written chunk.
type Progress interface {
	Start(total int64)
	Add(n int)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(int64) {}
func (nopProgress) Add(int)     {}
func (nopProgress) Finish()     {}

// Download streams url into dest, creating or truncating it. A partially
// written file is left in place on error.
func (c *Client) Download(ctx context.Context, url, dest string, progress Progress) (int64, error) {
	if progress == nil {
		progress = nopProgress{}
	}

	res, err := c.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}

	body := res.RawBody()
	defer body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(body, maxDetailLen))
		return 0, fmt.Errorf("failed to download %s: %w", url, newServerError(res.StatusCode(), string(detail)))
	}

	total := res.RawResponse.ContentLength
	if total < 0 {
		total = 0
	}

	f, err := c.fs.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer f.Close()

	c.log.Infow("downloading artifact", "url", url, "dest", dest, "size", total)

	progress.Start(total)
	defer progress.Finish()

	var written int64
	buf := make([]byte, chunkSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			wn, werr := f.Write(buf[:n])
			written += int64(wn)
			progress.Add(wn)
			if werr != nil {
				return written, fmt.Errorf("failed to write %s: %w", dest, werr)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return written, fmt.Errorf("failed to download %s: %w", url, rerr)
		}
	}

	return written, nil
}
