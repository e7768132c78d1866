package controlnet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Txt2ImgPath is the sdapi endpoint for text-to-image generation.
const Txt2ImgPath = "/sdapi/v1/txt2img"

// ErrBackend is returned when the backend answers with a non-success status.
var ErrBackend = errors.New("image backend error")

// ErrNoImages is returned when a response carries no image.
var ErrNoImages = errors.New("image backend returned no images")

// Options configures the backend client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// Retries is the number of extra attempts on transport errors and 5xx.
	Retries   int
	RetryWait time.Duration
	Logger    logrus.FieldLogger
}

// Client posts txt2img requests to an sdapi server.
type Client struct {
	http *resty.Client
	log  logrus.FieldLogger
}

// Response is the subset of the txt2img answer the application reads.
type Response struct {
	Images []string `json:"images"`
	Info   string   `json:"info"`
}

// NewClient returns a client for the server at opts.BaseURL.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://127.0.0.1:7860"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 2 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		SetHeader("Content-Type", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: rc, log: log.WithField("component", "controlnet")}
}

// Txt2Img sends req and returns the decoded response.
func (c *Client) Txt2Img(ctx context.Context, req *Request) (*Response, error) {
	var out Response
	c.log.WithFields(logrus.Fields{
		"prompt": req.Prompt,
		"steps":  req.Field("steps"),
		"weight": req.UnitField("weight"),
	}).Debug("sending txt2img request")

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req.Body()).
		SetResult(&out).
		Post(Txt2ImgPath)
	if err != nil {
		return nil, fmt.Errorf("txt2img request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %s", ErrBackend, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(out.Images) == 0 {
		return nil, ErrNoImages
	}
	return &out, nil
}

// Image decodes the i-th base64 image, accepting an optional data URL
// prefix.
func (r *Response) Image(i int) ([]byte, error) {
	if i < 0 || i >= len(r.Images) {
		return nil, ErrNoImages
	}
	s := r.Images[i]
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, ","); ok {
			s = payload
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding generated image: %w", err)
	}
	return data, nil
}
