package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/alpakasoelde/dashboard-api/pkg/utils"
	"github.com/google/uuid"
)

const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxMessageLength = 2000

	// MessageSentLocation is where the contact form redirects after a submission
	MessageSentLocation = "/nachricht-gesendet"

	msgPrivacyConsent = "Bitte bestätige, dass du die Datenschutzerklärung gelesen hast."
)

// MessageConfig configures contact notifications
type MessageConfig struct {
	SenderAddress     string
	ReceiverAddresses []string
	Subject           string
	OldMessageAge     time.Duration
}

// SendMessageCommand is a submitted contact form
type SendMessageCommand struct {
	Name            string
	Email           string
	Message         string
	PrivacyAccepted bool
}

// SendMessageResult tells the form where to go next
type SendMessageResult struct {
	ID               string
	RedirectLocation string
}

// MessageSummary is one row of the dashboard inbox
type MessageSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// OldMessageCount is the number of messages past the retention threshold
type OldMessageCount struct {
	Count int `json:"count"`
}

// MessageService manages contact messages
type MessageService interface {
	SendMessage(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error)
	ListMessages(ctx context.Context) ([]MessageSummary, error)
	DeleteMessage(ctx context.Context, id string) error
	CountOldMessages(ctx context.Context) (*OldMessageCount, error)
}

type messageServiceImpl struct {
	messageRepo port.MessageRepository
	emailSender port.EmailSender
	metrics     port.Metrics
	config      MessageConfig
	logger      Logger
	now         func() time.Time
}

// NewMessageService creates a new MessageService
func NewMessageService(
	messageRepo port.MessageRepository,
	emailSender port.EmailSender,
	metrics port.Metrics,
	config MessageConfig,
	logger Logger,
) MessageService {
	return &messageServiceImpl{
		messageRepo: messageRepo,
		emailSender: emailSender,
		metrics:     metrics,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SendMessage validates and stores a contact message, then notifies the farm
func (s *messageServiceImpl) SendMessage(ctx context.Context, cmd SendMessageCommand) (*SendMessageResult, error) {
	name := utils.SanitizeString(cmd.Name)
	email := strings.TrimSpace(cmd.Email)
	body := utils.SanitizeString(cmd.Message)

	var missing []string
	if name == "" {
		missing = append(missing, "Name")
	}
	if email == "" {
		missing = append(missing, "Email")
	}
	if body == "" {
		missing = append(missing, "Message")
	}
	if len(missing) > 0 {
		detail := fmt.Sprintf("%s are required fields and must be provided.", strings.Join(missing, ", "))
		return nil, invalid(detail, missing...)
	}

	var problems []string
	var fields []string
	if utf8.RuneCountInString(name) > MaxNameLength {
		problems = append(problems, fmt.Sprintf("Name exceeds %d characters.", MaxNameLength))
		fields = append(fields, "Name")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		problems = append(problems, fmt.Sprintf("Email exceeds %d characters.", MaxEmailLength))
		fields = append(fields, "Email")
	} else if err := utils.ValidateEmail(email); err != nil {
		problems = append(problems, "Email is not a valid address.")
		fields = append(fields, "Email")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		problems = append(problems, fmt.Sprintf("Message exceeds %d characters.", MaxMessageLength))
		fields = append(fields, "Message")
	}
	if !cmd.PrivacyAccepted {
		problems = append(problems, msgPrivacyConsent)
		fields = append(fields, "PrivacyConsent")
	}
	if len(problems) > 0 {
		return nil, invalid(strings.Join(problems, " "), fields...)
	}

	message := &entity.Message{
		ID:                    uuid.NewString(),
		Name:                  name,
		Email:                 email,
		Message:               body,
		PrivacyPolicyAccepted: true,
		Timestamp:             s.now().UTC(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		s.logger.Error("Failed to store message", "error", err)
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	s.metrics.MessageReceived()
	s.logger.Info("Message stored", "id", message.ID)

	if err := s.notify(ctx, message); err != nil {
		s.logger.Error("Failed to send message notification", "id", message.ID, "error", err)
		return nil, fmt.Errorf("failed to send notification: %w", err)
	}

	return &SendMessageResult{ID: message.ID, RedirectLocation: MessageSentLocation}, nil
}

func (s *messageServiceImpl) notify(ctx context.Context, message *entity.Message) error {
	if len(s.config.ReceiverAddresses) == 0 {
		s.logger.Info("No notification receivers configured, skipping email", "id", message.ID)
		return nil
	}

	return s.emailSender.Send(ctx, port.Email{
		From:    s.config.SenderAddress,
		To:      []string{s.config.SenderAddress},
		BCC:     s.config.ReceiverAddresses,
		Subject: s.config.Subject,
		Text:    notificationText(s.config.Subject, message),
		HTML:    notificationHTML(s.config.Subject, message),
	})
}

func notificationText(subject string, m *entity.Message) string {
	return fmt.Sprintf("%s\n\nName: %s\nE-Mail: %s\nNachricht: %s\n", subject, m.Name, m.Email, m.Message)
}

func notificationHTML(subject string, m *entity.Message) string {
	var b strings.Builder
	b.WriteString("<html>\n  <body>\n")
	fmt.Fprintf(&b, "    <h1>%s</h1>\n", html.EscapeString(subject))
	fmt.Fprintf(&b, "    <p><strong>Name:</strong> %s</p>\n", html.EscapeString(m.Name))
	fmt.Fprintf(&b, "    <p><strong>E-Mail:</strong> %s</p>\n", html.EscapeString(m.Email))
	fmt.Fprintf(&b, "    <p><strong>Nachricht:</strong> %s</p>\n", html.EscapeString(m.Message))
	b.WriteString("  </body>\n</html>\n")
	return b.String()
}

// ListMessages returns the inbox, newest first
func (s *messageServiceImpl) ListMessages(ctx context.Context) ([]MessageSummary, error) {
	messages, err := s.messageRepo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list messages", "error", err)
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	summaries := make([]MessageSummary, 0, len(messages))
	for _, m := range messages {
		summaries = append(summaries, MessageSummary{
			ID:        m.ID,
			Name:      m.Name,
			Email:     m.Email,
			Message:   m.Message,
			Timestamp: m.Timestamp,
		})
	}
	return summaries, nil
}

// DeleteMessage removes one message
func (s *messageServiceImpl) DeleteMessage(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("Message id must not be empty.", "id")
	}

	if err := s.messageRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return &ValidationError{Kind: KindNotFound, Detail: fmt.Sprintf("Message with id '%s' was not found.", id)}
		}
		s.logger.Error("Failed to delete message", "id", id, "error", err)
		return fmt.Errorf("failed to delete message: %w", err)
	}

	s.logger.Info("Message deleted", "id", id)
	return nil
}

// CountOldMessages counts messages older than the configured age
func (s *messageServiceImpl) CountOldMessages(ctx context.Context) (*OldMessageCount, error) {
	cutoff := s.now().UTC().Add(-s.config.OldMessageAge)

	count, err := s.messageRepo.CountOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to count old messages", "error", err)
		return nil, fmt.Errorf("failed to count old messages: %w", err)
	}

	return &OldMessageCount{Count: count}, nil
}
