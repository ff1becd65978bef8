package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.sendgrid.com"
	mailSendPath   = "/v3/mail/send"
	maxRetryWait   = 10 * time.Second
)

// Config holds SendGrid client configuration
type Config struct {
	APIKey         string
	BaseURL        string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

// Sender delivers email through the SendGrid v3 mail API
type Sender struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSender creates a SendGrid sender
func NewSender(cfg Config, logger *zap.Logger) (*Sender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid: api key required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}

	return &Sender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With(zap.String("client", "sendgrid")),
	}, nil
}

type address struct {
	Email string `json:"email"`
}

type personalization struct {
	To  []address `json:"to"`
	Bcc []address `json:"bcc,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

// HTTPError is a non-2xx answer from SendGrid
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 500 {
		body = body[:500] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, body)
}

// Send implements port.EmailSender
func (s *Sender) Send(ctx context.Context, email port.Email) error {
	payload, err := buildRequest(email)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sendgrid: failed to encode request: %w", err)
	}

	backoff := s.cfg.InitialBackoff
	for attempt := 0; ; attempt++ {
		resp, err := s.doOnce(ctx, body)
		if err == nil {
			s.logger.Info("Email sent",
				zap.String("subject", email.Subject),
				zap.Int("recipients", len(email.To)+len(email.BCC)),
				zap.String("message_id", resp.Header.Get("X-Message-Id")))
			return nil
		}

		if !isRetryable(err) || attempt >= s.cfg.MaxRetries {
			return err
		}

		wait := retryAfter(resp, backoff)
		s.logger.Warn("SendGrid request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", s.cfg.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

func buildRequest(email port.Email) (*mailSendRequest, error) {
	from := strings.TrimSpace(email.From)
	if from == "" {
		return nil, errors.New("sendgrid: sender address required")
	}
	if len(email.To) == 0 && len(email.BCC) == 0 {
		return nil, errors.New("sendgrid: at least one recipient required")
	}
	if strings.TrimSpace(email.Subject) == "" {
		return nil, errors.New("sendgrid: subject required")
	}

	var contents []content
	if t := strings.TrimSpace(email.Text); t != "" {
		contents = append(contents, content{Type: "text/plain", Value: email.Text})
	}
	if h := strings.TrimSpace(email.HTML); h != "" {
		contents = append(contents, content{Type: "text/html", Value: email.HTML})
	}
	if len(contents) == 0 {
		return nil, errors.New("sendgrid: text or html content required")
	}

	// SendGrid rejects personalizations without a "to"
	to := addresses(email.To)
	if len(to) == 0 {
		to = []address{{Email: from}}
	}

	return &mailSendRequest{
		Personalizations: []personalization{{To: to, Bcc: addresses(email.BCC)}},
		From:             address{Email: from},
		Subject:          email.Subject,
		Content:          contents,
	}, nil
}

func addresses(in []string) []address {
	var out []address
	for _, a := range in {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, address{Email: a})
		}
	}
	return out
}

func (s *Sender) doOnce(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+mailSendPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sendgrid: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	wait := fallback
	if resp != nil {
		if secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After"))); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if wait > maxRetryWait {
		wait = maxRetryWait
	}
	return wait
}

// Verify interface compliance
var _ port.EmailSender = (*Sender)(nil)
