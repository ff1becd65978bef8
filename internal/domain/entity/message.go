package entity

import "time"

// Message is a contact request submitted through the website
type Message struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Message               string    `json:"message"`
	PrivacyPolicyAccepted bool      `json:"privacyPolicyAccepted"`
	ETag                  string    `json:"-"`
	Timestamp             time.Time `json:"timestamp"`
}
