package jenkins

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/log"
)

const UserAgent = "qatrun"

type Client struct {
	*resty.Client

	fs  afero.Fs
	log *zap.SugaredLogger
}

type ClientFunc func(*Client)

type RequestFunc func(*resty.Request)

// SetBasicAuth authenticates with a Jenkins user and API token. Empty
// credentials leave the client anonymous.
func SetBasicAuth(username, token string) ClientFunc {
	return func(c *Client) {
		if username == "" && token == "" {
			return
		}
		c.SetBasicAuth(username, token)
	}
}

func SetTimeout(d time.Duration) ClientFunc {
	return func(c *Client) {
		if d > 0 {
			c.Client.SetTimeout(d)
		}
	}
}

func SetLogger(logger *zap.SugaredLogger) ClientFunc {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// SetFs sets the filesystem downloads are written to.
func SetFs(fs afero.Fs) ClientFunc {
	return func(c *Client) {
		c.fs = fs
	}
}

func New(cfs ...ClientFunc) *Client {
	r := resty.New()
	r.SetHeader("Accept", "application/json").
		SetHeader("User-Agent", UserAgent)

	c := &Client{
		Client: r,
		fs:     afero.NewOsFs(),
		log:    log.Nop(),
	}

	for _, cf := range cfs {
		cf(c)
	}

	return c
}

func (c *Client) Get(url string, rfs ...RequestFunc) (*resty.Response, error) {
	return c.Request(resty.MethodGet, url, rfs...)
}

func (c *Client) Request(method, url string, rfs ...RequestFunc) (*resty.Response, error) {
	r := c.R()

	for _, rf := range rfs {
		rf(r)
	}

	return wrapError(r.Execute(method, url))
}

func wrapError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return nil, err
	}

	if res.IsError() {
		return nil, newServerError(res.StatusCode(), res.String())
	}

	return res, nil
}
