package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
)

const (
	// IdempotencyHeader lets clients retry POST /api/gutscheine safely
	IdempotencyHeader = "Idempotency-Key"
	// ReplayedHeader marks a response served from the idempotency store
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255

	// claimTTL bounds how long an unfinished request holds its key
	claimTTL = time.Minute

	detailKeyTooLong  = "Der Idempotency-Key ist zu lang."
	detailKeyInFlight = "Eine Anfrage mit diesem Idempotency-Key wird bereits verarbeitet."
)

// claimKey reserves key for this request before any work is done.
// handled is true when a response was already written: a replay, a 409 for
// a key still in flight, or a 400 for an oversized key. Store failures are
// logged and the request proceeds uncached with claimed false.
func (h *Handlers) claimKey(c *gin.Context, key string) (claimed, handled bool) {
	if len(key) > maxIdempotencyKeyLength {
		writeProblem(c, http.StatusBadRequest, detailKeyTooLong)
		return false, true
	}
	if h.idempotency == nil {
		return false, false
	}

	ctx := c.Request.Context()
	claimed, err := h.idempotency.Claim(ctx, key, claimTTL)
	if err != nil {
		h.logger.Error("Idempotency claim failed", "key", key, "error", err)
		return false, false
	}
	if claimed {
		return true, false
	}

	cached, err := h.idempotency.Get(ctx, key)
	if err != nil {
		h.logger.Error("Idempotency lookup failed", "key", key, "error", err)
		writeProblem(c, http.StatusInternalServerError, detailInternal)
		return false, true
	}
	if cached == nil || cached.Pending {
		h.logger.Info("Idempotency key in flight", "key", key)
		writeProblem(c, http.StatusConflict, detailKeyInFlight)
		return false, true
	}

	h.logger.Info("Replaying idempotent response", "key", key, "status", cached.Status)
	c.Header(ReplayedHeader, "true")
	c.Data(cached.Status, "application/json; charset=utf-8", cached.Body)
	return false, true
}

// remember replaces the claim on key with the finished response
func (h *Handlers) remember(c *gin.Context, key string, status int, body []byte) bool {
	resp := &port.CachedResponse{Status: status, Body: body}
	if err := h.idempotency.Put(c.Request.Context(), key, resp, h.config.IdempotencyTTL); err != nil {
		h.logger.Error("Failed to store idempotent response", "key", key, "error", err)
		return false
	}
	return true
}

// releaseKey frees a claim so a failed request can be retried
func (h *Handlers) releaseKey(c *gin.Context, key string) {
	if err := h.idempotency.Release(c.Request.Context(), key); err != nil {
		h.logger.Error("Failed to release idempotency key", "key", key, "error", err)
	}
}
