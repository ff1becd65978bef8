package port

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidImageToken is returned for a missing, forged or expired image link
var ErrInvalidImageToken = errors.New("invalid image token")

// Email is a transactional notification
type Email struct {
	From    string
	To      []string
	BCC     []string
	Subject string
	Text    string
	HTML    string
}

// EmailSender delivers transactional email
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

// CachedResponse is a replayable HTTP response body.
// Pending marks a key claimed by a request that has not finished yet.
type CachedResponse struct {
	Status  int    `json:"status"`
	Body    []byte `json:"body"`
	Pending bool   `json:"pending,omitempty"`
}

// IdempotencyStore remembers responses per Idempotency-Key.
// Get returns nil, nil on a miss. Claim atomically reserves an unused key
// with a pending marker and reports false when the key is already taken.
// Release drops a claim whose request produced nothing worth replaying.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

// ImageStore keeps uploaded pictures under flat file names.
// Read fails with ErrNotFound for an unknown name; Delete of an unknown name succeeds.
type ImageStore interface {
	Save(ctx context.Context, name string, content []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// ImageURLSigner hands out time-limited read links for stored images
type ImageURLSigner interface {
	// SignURL returns a link to the named image that expires after lifetime
	SignURL(name string, lifetime time.Duration) (string, error)

	// Verify returns the image name the token grants access to,
	// or ErrInvalidImageToken
	Verify(token string) (string, error)
}

// Metrics records business events
type Metrics interface {
	VoucherCreated()
	VoucherRedeemed()
	MessageReceived()
	AlpakaCreated()
	EventCreated()
}
