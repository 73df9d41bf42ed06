package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wa-marketing/backend/internal/config"
	"github.com/wa-marketing/backend/internal/metrics"
	"go.uber.org/zap"
)

// Chatbot answers free-text questions from contacts.
type Chatbot interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ChatbotClient talks to the RAG chatbot service over HTTP.
type ChatbotClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	log        *zap.Logger
}

func NewChatbotClient(cfg config.ChatbotConfig, log *zap.Logger) *ChatbotClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatbotClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
}

type ChatResponse struct {
	Response   string   `json:"response"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
}

// Chat posts the message to /chat. Network errors and 5xx answers are
// retried with exponential backoff; 4xx answers are not.
func (c *ChatbotClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var result ChatResponse
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return fmt.Errorf("chatbot service unavailable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			err := fmt.Errorf("chatbot service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
			if resp.StatusCode < http.StatusInternalServerError {
				return backoff.Permanent(err)
			}
			return err
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode chatbot response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 0
	retries := c.maxRetries
	if retries < 0 {
		retries = 0
	}

	err = backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx),
		func(err error, wait time.Duration) {
			c.log.Warn("chatbot call failed, retrying", zap.Duration("retry_in", wait), zap.Error(err))
		})
	if err != nil {
		metrics.ChatbotRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.ChatbotRequests.WithLabelValues("ok").Inc()
	return &result, nil
}

// IsAvailable reports whether the chatbot service answers its health check.
func (c *ChatbotClient) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
