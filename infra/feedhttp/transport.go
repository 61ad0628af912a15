package feedhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/docfeed/auth"
	"github.com/kilianp07/docfeed/core/factory"
	"github.com/kilianp07/docfeed/core/pusher"
)

// Config holds the search service endpoint settings.
type Config struct {
	URL         string        `json:"url"`
	Timeout     time.Duration `json:"timeout"`
	DocIDPrefix string        `json:"docid_prefix"`
	Auth        auth.Conf     `json:"auth"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("search url is required")
	}
	return c.Auth.Validate()
}

// ErrRejected is returned when the feed endpoint does not answer "Success".
var ErrRejected = errors.New("feed rejected")

// Transport posts feeds to <url>/xmlfeed.
type Transport struct {
	endpoint string
	prefix   string
	client   *http.Client
}

var _ pusher.Transport = (*Transport)(nil)

// New creates a transport. When cfg.Auth is enabled every request carries
// a client credentials bearer token.
func New(cfg Config) (*Transport, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Auth.Enabled() {
		client = auth.NewClientCred(cfg.Auth).Client(client)
	}
	return &Transport{
		endpoint: strings.TrimSuffix(cfg.URL, "/") + "/xmlfeed",
		prefix:   cfg.DocIDPrefix,
		client:   client,
	}, nil
}

func init() {
	_ = pusher.RegisterTransport("http", func(conf map[string]any) (pusher.Transport, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c)
	})
}

// Send posts the feed and checks the service answer.
func (t *Transport) Send(ctx context.Context, f pusher.Feed) error {
	data, err := Encode(f, t.prefix)
	if err != nil {
		return fmt.Errorf("encode feed: %w", err)
	}
	body, contentType, err := multipartBody(f, data)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	reply, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return err
	}
	msg := strings.TrimSpace(string(reply))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, msg)
	}
	if !strings.EqualFold(msg, "Success") {
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return nil
}

func multipartBody(f pusher.Feed, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("datasource", f.Datasource); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("feedtype", string(f.FeedType)); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile("data", f.ID+".xml")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
