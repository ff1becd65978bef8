package entity

import "time"

// Event is one alpaka's row of a herd event. An event recorded for several
// alpakas is stored once per alpaka, all rows sharing SharedEventID.
type Event struct {
	AlpakaID      string
	ID            string
	SharedEventID string
	EventType     string
	EventDate     time.Time
	Comment       *string
	Cost          *float64
	ETag          string
	Timestamp     time.Time
}

// GroupID is the id the rows of one event are listed under
func (e *Event) GroupID() string {
	if e.SharedEventID != "" {
		return e.SharedEventID
	}
	return e.ID
}
