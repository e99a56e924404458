// Package adapter provides HTTP clients for the external collaborators of the
// analysis pipeline: the 1inch market-data API and an OpenAI-compatible
// language model.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wallet-insights/internal/circuitbreaker"
	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/retry"
)

const maxErrorBody = 1024

// Pacer delays a request until the provider's shared budget admits it
type Pacer interface {
	Wait(ctx context.Context) error
}

// upstream performs JSON requests against one provider behind a circuit
// breaker, retrying transient failures.
type upstream struct {
	name     string
	client   *http.Client
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg *retry.Config
	headers  map[string]string
	pacer    Pacer
}

func newUpstream(name string, client *http.Client, headers map[string]string) *upstream {
	if client == nil {
		client = &http.Client{}
	}
	return &upstream{
		name:     name,
		client:   client,
		breaker:  circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(name)),
		retryCfg: retry.DefaultConfig(),
		headers:  headers,
	}
}

// doJSON sends body (if non-nil) as JSON and decodes the response into out
func (u *upstream) doJSON(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", u.name, err)
		}
	}

	return retry.Do(ctx, u.retryCfg, func(ctx context.Context, attempt int) error {
		if u.pacer != nil {
			if err := u.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		return u.breaker.Execute(ctx, func() error {
			return u.once(ctx, method, url, payload, out)
		})
	})
}

func (u *upstream) once(ctx context.Context, method, url string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", u.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range u.headers {
		req.Header.Set(k, v)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewProviderError(u.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperrors.NewProviderStatusError(u.name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", u.name, err)
	}
	return nil
}

// flexFloat accepts a JSON number, a numeric string, or null
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		*f = 0
		return nil
	}
	v, _ := d.Float64()
	*f = flexFloat(v)
	return nil
}

// flexString accepts a JSON string, a number, or null
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	*s = flexString(raw)
	return nil
}
