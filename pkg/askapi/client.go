// Package askapi submits questions to the assistant's request endpoint.
//
// The endpoint only acknowledges receipt; answers arrive later on the push
// channel. No client-side timeout is applied unless the caller's context
// carries one.
package askapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrRejected is returned when the endpoint answers with success=false.
var ErrRejected = errors.New("question rejected")

// RejectedError carries the server-provided reason for a rejection.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return ErrRejected.Error()
	}
	return ErrRejected.Error() + ": " + e.Reason
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

type askRequest struct {
	UserID   string `json:"user_id"`
	Question string `json:"question"`
}

type askResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Client struct {
	endpoint string
	http     *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("askapi: endpoint is empty")
	}
	c := &Client{endpoint: endpoint, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ask posts {user_id, question}. A nil error means the server accepted the
// question; a *RejectedError means it answered success=false; anything else
// is a transport failure.
func (c *Client) Ask(ctx context.Context, userID string, question string) error {
	body, err := json.Marshal(askRequest{UserID: userID, Question: question})
	if err != nil {
		return errors.Wrap(err, "askapi: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "askapi: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "askapi: post question")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "askapi: read response")
	}
	var out askResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return errors.Wrapf(err, "askapi: decode response (status %d)", resp.StatusCode)
	}
	if !out.Success {
		log.Warn().Str("component", "askapi").Str("user_id", userID).Int("status", resp.StatusCode).Str("error", out.Error).Msg("question rejected")
		return &RejectedError{Reason: out.Error}
	}
	log.Debug().Str("component", "askapi").Str("user_id", userID).Msg("question accepted")
	return nil
}
