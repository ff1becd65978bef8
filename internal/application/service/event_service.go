package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/alpakasoelde/dashboard-api/internal/voucher"
	"github.com/google/uuid"
)

const (
	MaxEventTypeLength = 100
	MaxCommentLength   = 1000

	msgEventTypeRequired = "Das Ereignisfeld ist erforderlich."
	msgEventTypeTooLong  = "Der Ereignistyp darf maximal 100 Zeichen lang sein."
	msgNoAlpakaSelected  = "Mindestens ein Alpaka muss ausgewählt werden."
	msgCommentTooLong    = "Die Notiz darf maximal 1000 Zeichen enthalten."
	msgInvalidEventDate  = "Das Datum ist ungültig."
	msgNegativeCost      = "Kosten dürfen nicht negativ sein."
)

// AddEventCommand records one event for one or more alpakas
type AddEventCommand struct {
	EventType string
	AlpakaIDs []string
	EventDate string
	Cost      *float64
	Comment   *string
}

// AddEventResult names the shared event id
type AddEventResult struct {
	ID string `json:"id"`
}

// EventSummary is one event of the herd diary with the alpakas it concerns
type EventSummary struct {
	ID          string   `json:"id"`
	EventType   string   `json:"eventType"`
	EventDate   string   `json:"eventDate"`
	Comment     *string  `json:"comment"`
	Cost        *float64 `json:"cost"`
	AlpakaIDs   []string `json:"alpakaIds"`
	AlpakaNames []string `json:"alpakaNames"`
}

// EventService manages herd events
type EventService interface {
	AddEvent(ctx context.Context, cmd AddEventCommand) (*AddEventResult, error)
	ListEvents(ctx context.Context) ([]EventSummary, error)
}

type eventServiceImpl struct {
	eventRepo  port.EventRepository
	alpakaRepo port.AlpakaRepository
	metrics    port.Metrics
	logger     Logger
}

// NewEventService creates a new EventService
func NewEventService(
	eventRepo port.EventRepository,
	alpakaRepo port.AlpakaRepository,
	metrics port.Metrics,
	logger Logger,
) EventService {
	return &eventServiceImpl{
		eventRepo:  eventRepo,
		alpakaRepo: alpakaRepo,
		metrics:    metrics,
		logger:     logger,
	}
}

// AddEvent stores one row per selected alpaka under a shared id
func (s *eventServiceImpl) AddEvent(ctx context.Context, cmd AddEventCommand) (*AddEventResult, error) {
	if strings.TrimSpace(cmd.EventType) == "" {
		return nil, invalid(msgEventTypeRequired, "eventType")
	}
	if utf8.RuneCountInString(cmd.EventType) > MaxEventTypeLength {
		return nil, invalid(msgEventTypeTooLong, "eventType")
	}

	alpakaIDs := normalizeIDs(cmd.AlpakaIDs)
	if len(alpakaIDs) == 0 {
		return nil, invalid(msgNoAlpakaSelected, "alpakaIds")
	}

	var comment *string
	if cmd.Comment != nil {
		trimmed := strings.TrimSpace(*cmd.Comment)
		if utf8.RuneCountInString(trimmed) > MaxCommentLength {
			return nil, invalid(msgCommentTooLong, "comment")
		}
		comment = &trimmed
	}

	eventDate, err := voucher.ParseDate(cmd.EventDate)
	if err != nil {
		return nil, invalid(msgInvalidEventDate, "eventDate")
	}

	// NaN fails this comparison too
	if cmd.Cost != nil && !(*cmd.Cost >= 0) {
		return nil, invalid(msgNegativeCost, "cost")
	}

	sharedID := uuid.NewString()
	eventType := strings.TrimSpace(cmd.EventType)
	rows := make([]*entity.Event, 0, len(alpakaIDs))
	for _, alpakaID := range alpakaIDs {
		rows = append(rows, &entity.Event{
			AlpakaID:      alpakaID,
			ID:            sharedID,
			SharedEventID: sharedID,
			EventType:     eventType,
			EventDate:     eventDate,
			Comment:       comment,
			Cost:          cmd.Cost,
		})
	}

	if err := s.eventRepo.CreateAll(ctx, rows); err != nil {
		s.logger.Error("Failed to add event", "event_type", eventType, "error", err)
		return nil, fmt.Errorf("failed to store event: %w", err)
	}

	s.metrics.EventCreated()
	s.logger.Info("Event added", "id", sharedID, "event_type", eventType, "alpakas", len(rows))

	return &AddEventResult{ID: sharedID}, nil
}

// ListEvents groups the stored rows per event, newest event date first
func (s *eventServiceImpl) ListEvents(ctx context.Context) ([]EventSummary, error) {
	rows, err := s.eventRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	names, err := s.alpakaRepo.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load alpaka names: %w", err)
	}

	var order []string
	groups := make(map[string][]*entity.Event)
	for _, row := range rows {
		id := row.GroupID()
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], row)
	}

	summaries := make([]EventSummary, 0, len(order))
	for _, id := range order {
		group := groups[id]
		first := group[0]

		partitions := make([]string, 0, len(group))
		for _, row := range group {
			partitions = append(partitions, row.AlpakaID)
		}
		alpakaIDs := normalizeIDs(partitions)

		alpakaNames := make([]string, 0, len(alpakaIDs))
		for _, alpakaID := range alpakaIDs {
			if name := names[strings.ToLower(alpakaID)]; strings.TrimSpace(name) != "" {
				alpakaNames = append(alpakaNames, name)
			}
		}

		summaries = append(summaries, EventSummary{
			ID:          id,
			EventType:   first.EventType,
			EventDate:   voucher.FormatDate(first.EventDate),
			Comment:     first.Comment,
			Cost:        first.Cost,
			AlpakaIDs:   alpakaIDs,
			AlpakaNames: alpakaNames,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].EventDate != summaries[j].EventDate {
			return summaries[i].EventDate > summaries[j].EventDate
		}
		return summaries[i].ID > summaries[j].ID
	})

	return summaries, nil
}

// normalizeIDs trims ids, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling
func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		key := strings.ToLower(id)
		if id == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, id)
	}
	return out
}
