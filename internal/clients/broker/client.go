// Package broker submits execution instructions to the broker gateway.
package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkosta/warroom/internal/domain"
)

// Client is the HTTP execution sink. Fill and rejection acks arrive
// separately over the gateway's websocket stream.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a broker gateway client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "broker").Logger(),
	}
}

// Submit implements domain.ExecutionSink.
func (c *Client) Submit(ctx context.Context, instruction domain.ExecutionInstruction) error {
	body, err := json.Marshal(instruction)
	if err != nil {
		return fmt.Errorf("failed to encode instruction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("order submission failed for %s: %w", instruction.DecisionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("broker gateway rejected order %s: %d %s",
			instruction.DecisionID, resp.StatusCode, string(detail))
	}

	c.log.Debug().Str("decision_id", instruction.DecisionID).Str("side", string(instruction.Side)).
		Msg("order accepted by gateway")
	return nil
}
