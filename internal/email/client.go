// Package email sends transactional email through a Resend-compatible HTTP
// API.
package email

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultBaseURL is the public Resend API.
const DefaultBaseURL = "https://api.resend.com"

// Message is a single outgoing email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Client posts messages to the provider.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	from    string
}

// NewClient creates a Client. A nil httpClient gets an instrumented
// default with a 10s timeout.
func NewClient(baseURL, apiKey, from string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
	}
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	return "email api: " + http.StatusText(e.StatusCode) + ": " + e.Name + ": " + e.Message
}

// Send delivers m and returns the provider's message id.
func (c *Client) Send(ctx context.Context, m Message) (string, error) {
	if len(m.To) == 0 {
		return "", errors.New("email: no recipients")
	}

	var e jx.Encoder
	e.ObjStart()
	e.Field("from", func(e *jx.Encoder) { e.Str(c.from) })
	e.Field("to", func(e *jx.Encoder) {
		e.ArrStart()
		for _, to := range m.To {
			e.Str(to)
		}
		e.ArrEnd()
	})
	e.Field("subject", func(e *jx.Encoder) { e.Str(m.Subject) })
	e.Field("html", func(e *jx.Encoder) { e.Str(m.HTML) })
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(e.Bytes()))
	if err != nil {
		return "", errors.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send email")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "name":
				v, err := d.Str()
				apiErr.Name = v
				return err
			case "message":
				v, err := d.Str()
				apiErr.Message = v
				return err
			default:
				return d.Skip()
			}
		})
		return "", apiErr
	}

	var id string
	if err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) == "id" {
			v, err := d.Str()
			id = v
			return err
		}
		return d.Skip()
	}); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	return id, nil
}
