// Package rpcrepos implements the timetable Repository against the
// authoritative remote backend, reached through a single request/response
// endpoint: every operation is a POST of {operationName, variables} answered
// by {data} or {errors}.
package rpcrepos

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/timetable"
)

// featureUnavailableCode is the remote's explicit "operation not implemented
// by this deployment" signal, distinct from a transport or schema failure.
const featureUnavailableCode = "FEATURE_NOT_AVAILABLE"

type Client struct {
	endpoint string
	http     *http.Client
}

func NewClient(conf *core.Config) *Client {
	return &Client{
		endpoint: conf.Remote.Endpoint,
		http:     &http.Client{Timeout: conf.Remote.Timeout},
	}
}

type (
	envelope struct {
		OperationName string      `json:"operationName"`
		Variables     interface{} `json:"variables,omitempty"`
	}

	remoteError struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	}

	response struct {
		Data   json.RawMessage `json:"data"`
		Errors []remoteError   `json:"errors"`
	}
)

func (re remoteError) featureUnavailable() bool {
	if re.Extensions.Code == featureUnavailableCode {
		return true
	}
	// older deployments only say so in prose
	msg := strings.ToLower(re.Message)
	return strings.Contains(msg, "not supported") || strings.Contains(msg, "unknown operation")
}

// request performs one round trip and decodes the data payload into out.
// out may be nil for operations whose payload is irrelevant.
func (c *Client) request(ctx context.Context, op string, vars, out interface{}) error {
	body, err := json.Marshal(envelope{OperationName: op, Variables: vars})
	if err != nil {
		return errors.Wrapf(err, "%s: encoding request", op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "%s: building request", op)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s: round trip", op)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("%s: remote returned status %d", op, res.StatusCode)
	}

	var payload response
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return errors.Wrapf(err, "%s: decoding response", op)
	}
	if len(payload.Errors) > 0 {
		re := payload.Errors[0]
		if re.featureUnavailable() {
			return errors.Wrap(timetable.ErrFeatureUnavailable, op)
		}
		return errors.Errorf("%s: %s", op, re.Message)
	}

	if out != nil {
		if err := json.Unmarshal(payload.Data, out); err != nil {
			return errors.Wrapf(err, "%s: decoding data", op)
		}
	}
	return nil
}
