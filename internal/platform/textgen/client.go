package textgen

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// Client calls the hosted text generation API used to draft clinical
// interpretation summaries. Calls run behind a circuit breaker so a degraded
// upstream fails fast instead of stalling recommendation generation.
type Client struct {
	http    *resty.Client
	apiKey  string
	breaker *gobreaker.CircuitBreaker
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "textgen",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond),
		apiKey:  apiKey,
		breaker: breaker,
	}
}

// Generate submits a prompt and returns the generated text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var body generateResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("key", c.apiKey).
			SetBody(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}).
			SetResult(&body).
			SetError(&body).
			Post("/v1beta/models/gemini-1.5-flash:generateContent")
		if err != nil {
			return nil, fmt.Errorf("text generation request: %w", err)
		}
		if resp.IsError() {
			msg := resp.Status()
			if body.Error != nil {
				msg = body.Error.Message
			}
			return nil, fmt.Errorf("text generation failed: %s", msg)
		}
		if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
			return nil, fmt.Errorf("text generation returned no candidates")
		}
		return body.Candidates[0].Content.Parts[0].Text, nil
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
