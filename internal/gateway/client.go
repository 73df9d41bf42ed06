package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wa-marketing/backend/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// apiClient is the HTTP plumbing shared by the vendor implementations.
type apiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	sleep      sleepFunc
	log        *zap.Logger
}

func newAPIClient(cfg config.GatewayConfig, log *zap.Logger) apiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = DefaultBatchSize
	}
	return apiClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		sleep:   sleepCtx,
		log:     log,
	}
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Body)
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *apiClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &apiError{Status: resp.StatusCode, Body: extractMessage(b)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// extractMessage pulls a human readable message out of common vendor error bodies.
func extractMessage(b []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(b, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error.Message != "" {
			return e.Error.Message
		}
	}
	return strings.TrimSpace(string(b))
}

// send runs one rate limited provider call and converts it to a SendResult.
func (c *apiClient) send(ctx context.Context, msg OutboundMessage, call func(context.Context) (string, error)) SendResult {
	res := SendResult{CorrelationID: msg.CorrelationID}

	if err := c.limiter.Wait(ctx); err != nil {
		res.Error = err.Error()
		return res
	}

	id, err := call(ctx)
	if err != nil {
		c.log.Warn("message send failed",
			zap.String("correlation_id", msg.CorrelationID),
			zap.String("phone", MaskPhone(msg.Phone)),
			zap.Error(err),
		)
		res.Error = err.Error()
		return res
	}

	c.log.Debug("message sent",
		zap.String("correlation_id", msg.CorrelationID),
		zap.String("provider_message_id", id),
		zap.String("phone", MaskPhone(msg.Phone)),
	)
	res.Success = true
	res.ProviderMessageID = id
	return res
}
