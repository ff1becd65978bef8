package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func text(s string) *string { return &s }

func newTestEventService(events *mockEventRepo, alpakas *mockAlpakaRepo) (EventService, *mockMetrics) {
	metrics := &mockMetrics{}
	return NewEventService(events, alpakas, metrics, &mockLogger{}), metrics
}

func TestEventService_AddEvent_Validation(t *testing.T) {
	valid := func(mutate func(cmd *AddEventCommand)) AddEventCommand {
		cmd := AddEventCommand{EventType: "Schur", AlpakaIDs: []string{"a1"}, EventDate: "2025-05-10"}
		mutate(&cmd)
		return cmd
	}

	tests := []struct {
		name       string
		cmd        AddEventCommand
		wantDetail string
	}{
		{
			name:       "missing event type",
			cmd:        valid(func(c *AddEventCommand) { c.EventType = " " }),
			wantDetail: "Das Ereignisfeld ist erforderlich.",
		},
		{
			name:       "event type too long",
			cmd:        valid(func(c *AddEventCommand) { c.EventType = strings.Repeat("x", 101) }),
			wantDetail: "Der Ereignistyp darf maximal 100 Zeichen lang sein.",
		},
		{
			name:       "no alpaka",
			cmd:        valid(func(c *AddEventCommand) { c.AlpakaIDs = nil }),
			wantDetail: "Mindestens ein Alpaka muss ausgewählt werden.",
		},
		{
			name:       "only blank alpaka ids",
			cmd:        valid(func(c *AddEventCommand) { c.AlpakaIDs = []string{"", "  "} }),
			wantDetail: "Mindestens ein Alpaka muss ausgewählt werden.",
		},
		{
			name:       "comment too long",
			cmd:        valid(func(c *AddEventCommand) { c.Comment = text(strings.Repeat("ü", 1001)) }),
			wantDetail: "Die Notiz darf maximal 1000 Zeichen enthalten.",
		},
		{
			name:       "invalid date",
			cmd:        valid(func(c *AddEventCommand) { c.EventDate = "gestern" }),
			wantDetail: "Das Datum ist ungültig.",
		},
		{
			name:       "negative cost",
			cmd:        valid(func(c *AddEventCommand) { c.Cost = amount(-0.01) }),
			wantDetail: "Kosten dürfen nicht negativ sein.",
		},
		{
			name:       "cost is not a number",
			cmd:        valid(func(c *AddEventCommand) { c.Cost = amount(math.NaN()) }),
			wantDetail: "Kosten dürfen nicht negativ sein.",
		},
		{
			name:       "event type checked before alpakas",
			cmd:        AddEventCommand{EventDate: "kaputt"},
			wantDetail: "Das Ereignisfeld ist erforderlich.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := &mockEventRepo{}
			svc, metrics := newTestEventService(events, &mockAlpakaRepo{})

			_, err := svc.AddEvent(context.Background(), tt.cmd)

			requireValidation(t, err, KindInvalid, tt.wantDetail)
			assert.Empty(t, events.created)
			assert.Zero(t, metrics.events)
		})
	}
}

func TestEventService_AddEvent(t *testing.T) {
	events := &mockEventRepo{}
	svc, metrics := newTestEventService(events, &mockAlpakaRepo{})

	result, err := svc.AddEvent(context.Background(), AddEventCommand{
		EventType: " Schur ",
		AlpakaIDs: []string{" a1", "A1", "", "a2"},
		EventDate: "2025-05-10T23:30:00+02:00",
		Cost:      amount(0),
		Comment:   text("  jährlich "),
	})

	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Len(t, events.created, 2)
	for i, alpakaID := range []string{"a1", "a2"} {
		row := events.created[i]
		assert.Equal(t, alpakaID, row.AlpakaID)
		assert.Equal(t, result.ID, row.ID)
		assert.Equal(t, result.ID, row.SharedEventID)
		assert.Equal(t, "Schur", row.EventType)
		assert.True(t, row.EventDate.Equal(day("2025-05-10")))
		require.NotNil(t, row.Comment)
		assert.Equal(t, "jährlich", *row.Comment)
		require.NotNil(t, row.Cost)
		assert.Equal(t, 0.0, *row.Cost)
	}
	assert.Equal(t, 1, metrics.events)
}

func TestEventService_AddEvent_StoreFailure(t *testing.T) {
	events := &mockEventRepo{createAllFunc: func(ctx context.Context, rows []*entity.Event) error {
		return errors.New("database is locked")
	}}
	svc, metrics := newTestEventService(events, &mockAlpakaRepo{})

	_, err := svc.AddEvent(context.Background(), AddEventCommand{EventType: "Schur", AlpakaIDs: []string{"a1"}, EventDate: "2025-05-10"})

	require.Error(t, err)
	_, isValidation := AsValidationError(err)
	assert.False(t, isValidation)
	assert.Zero(t, metrics.events)
}

func TestEventService_ListEvents(t *testing.T) {
	cost := 12.5
	rows := []*entity.Event{
		{AlpakaID: "a1", ID: "e1", SharedEventID: "e1", EventType: "Schur", EventDate: day("2025-05-10"), Cost: &cost},
		{AlpakaID: "A2", ID: "e1", SharedEventID: "e1", EventType: "Schur", EventDate: day("2025-05-10"), Cost: &cost},
		{AlpakaID: "a2", ID: "e1", SharedEventID: "e1", EventType: "Schur", EventDate: day("2025-05-10"), Cost: &cost},
		{AlpakaID: "gone", ID: "legacy", EventType: "Impfung", EventDate: day("2025-06-01")},
		{AlpakaID: "a1", ID: "e0", SharedEventID: "e0", EventType: "Tierarzt", EventDate: day("2025-05-10"), Comment: text("Zähne")},
	}
	events := &mockEventRepo{getAllFunc: func(ctx context.Context) ([]*entity.Event, error) { return rows, nil }}
	alpakas := &mockAlpakaRepo{namesFunc: func(ctx context.Context) (map[string]string, error) {
		return map[string]string{"a1": "Lotte", "a2": "Bruno"}, nil
	}}
	svc, _ := newTestEventService(events, alpakas)

	summaries, err := svc.ListEvents(context.Background())

	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, "legacy", summaries[0].ID, "grouped by row key when no shared id exists")
	assert.Equal(t, "2025-06-01", summaries[0].EventDate)
	assert.Equal(t, []string{"gone"}, summaries[0].AlpakaIDs)
	assert.Empty(t, summaries[0].AlpakaNames, "unknown alpakas have no name")

	assert.Equal(t, "e1", summaries[1].ID, "same date sorts by id descending")
	assert.Equal(t, []string{"a1", "A2"}, summaries[1].AlpakaIDs)
	assert.Equal(t, []string{"Lotte", "Bruno"}, summaries[1].AlpakaNames)
	require.NotNil(t, summaries[1].Cost)
	assert.Equal(t, 12.5, *summaries[1].Cost)
	assert.Nil(t, summaries[1].Comment)

	assert.Equal(t, "e0", summaries[2].ID)
	require.NotNil(t, summaries[2].Comment)
	assert.Equal(t, "Zähne", *summaries[2].Comment)
}

func TestEventService_ListEvents_Empty(t *testing.T) {
	svc, _ := newTestEventService(&mockEventRepo{}, &mockAlpakaRepo{})

	summaries, err := svc.ListEvents(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}
