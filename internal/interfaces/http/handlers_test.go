package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/application/service"
)

type mockVoucherService struct {
	addFunc    func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error)
	redeemFunc func(ctx context.Context, cmd service.RedeemVoucherCommand) (*service.RedeemVoucherResult, error)
	listFunc   func(ctx context.Context) ([]service.VoucherSummary, error)
	exportFunc func(ctx context.Context) ([]byte, error)
	addCalls   int
}

func (m *mockVoucherService) AddVoucher(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
	m.addCalls++
	if m.addFunc != nil {
		return m.addFunc(ctx, cmd)
	}
	return &service.AddVoucherResult{ID: "202501"}, nil
}

func (m *mockVoucherService) RedeemVoucher(ctx context.Context, cmd service.RedeemVoucherCommand) (*service.RedeemVoucherResult, error) {
	if m.redeemFunc != nil {
		return m.redeemFunc(ctx, cmd)
	}
	return &service.RedeemVoucherResult{ID: cmd.ID, RedeemedDate: cmd.RedeemedDate}, nil
}

func (m *mockVoucherService) ListVouchers(ctx context.Context) ([]service.VoucherSummary, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []service.VoucherSummary{}, nil
}

func (m *mockVoucherService) ExportVouchers(ctx context.Context) ([]byte, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx)
	}
	return []byte("PK"), nil
}

type mockMessageService struct {
	sendFunc   func(ctx context.Context, cmd service.SendMessageCommand) (*service.SendMessageResult, error)
	listFunc   func(ctx context.Context) ([]service.MessageSummary, error)
	deleteFunc func(ctx context.Context, id string) error
	countFunc  func(ctx context.Context) (*service.OldMessageCount, error)
}

func (m *mockMessageService) SendMessage(ctx context.Context, cmd service.SendMessageCommand) (*service.SendMessageResult, error) {
	if m.sendFunc != nil {
		return m.sendFunc(ctx, cmd)
	}
	return &service.SendMessageResult{ID: "id", RedirectLocation: service.MessageSentLocation}, nil
}

func (m *mockMessageService) ListMessages(ctx context.Context) ([]service.MessageSummary, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []service.MessageSummary{}, nil
}

func (m *mockMessageService) DeleteMessage(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockMessageService) CountOldMessages(ctx context.Context) (*service.OldMessageCount, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx)
	}
	return &service.OldMessageCount{}, nil
}

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*port.CachedResponse
	ttl     time.Duration
}

func (m *memoryIdempotencyStore) Get(ctx context.Context, key string) (*port.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *memoryIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.entries[key]; taken {
		return false, nil
	}
	m.entries[key] = &port.CachedResponse{Pending: true}
	return true, nil
}

func (m *memoryIdempotencyStore) Put(ctx context.Context, key string, resp *port.CachedResponse, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = resp
	m.ttl = ttl
	return nil
}

func (m *memoryIdempotencyStore) Release(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

type testServer struct {
	vouchers *mockVoucherService
	messages *mockMessageService
	alpakas  *mockAlpakaService
	events   *mockEventService
	store    *memoryIdempotencyStore
	router   *gin.Engine
}

func newTestServer(health HealthFunc) *testServer {
	ts := &testServer{
		vouchers: &mockVoucherService{},
		messages: &mockMessageService{},
		alpakas:  &mockAlpakaService{},
		events:   &mockEventService{},
		store:    &memoryIdempotencyStore{entries: map[string]*port.CachedResponse{}},
	}
	services := Services{Voucher: ts.vouchers, Message: ts.messages, Alpaka: ts.alpakas, Event: ts.events}
	server := NewServer(DefaultServerConfig(), services, ts.store, nil, health, &mockLogger{})
	gin.SetMode(gin.TestMode)
	ts.router = server.Router()
	return ts
}

func (ts *testServer) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) Problem {
	t.Helper()
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHandlers_AddVoucher(t *testing.T) {
	ts := newTestServer(nil)
	var got service.AddVoucherCommand
	ts.vouchers.addFunc = func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
		got = cmd
		return &service.AddVoucherResult{ID: "202507"}, nil
	}

	rec := ts.do(http.MethodPost, "/api/gutscheine",
		`{"Kaufdatum":"2025-03-01","betrag":50.5,"verkauftAn":"Oma","eingeloestAm":null}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"gutscheinnummer":"202507"}`, rec.Body.String())
	assert.Equal(t, "2025-03-01", got.PurchaseDate)
	require.NotNil(t, got.Amount)
	assert.Equal(t, 50.5, *got.Amount)
	assert.Equal(t, "Oma", got.SoldTo)
	assert.Empty(t, got.RedeemedDate)
	assert.Empty(t, got.ID)
}

func TestHandlers_AddVoucher_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantDetail string
	}{
		{name: "malformed json", body: `{"kaufdatum":`, wantStatus: 400, wantDetail: "Ungültiger Anfrageinhalt."},
		{name: "wrong type", body: `{"betrag":"fünfzig"}`, wantStatus: 400, wantDetail: "Ungültiger Anfrageinhalt."},
		{name: "empty body", body: ``, wantStatus: 400, wantDetail: "Ein Gutschein muss angegeben werden."},
		{name: "null body", body: `null`, wantStatus: 400, wantDetail: "Ein Gutschein muss angegeben werden."},
		{name: "whitespace body", body: "  \n ", wantStatus: 400, wantDetail: "Ein Gutschein muss angegeben werden."},
		{
			name:       "validation error",
			body:       `{"kaufdatum":"2025-03-01","betrag":0}`,
			serviceErr: &service.ValidationError{Kind: service.KindInvalid, Detail: "Der Betrag muss größer als 0 sein."},
			wantStatus: 400,
			wantDetail: "Der Betrag muss größer als 0 sein.",
		},
		{
			name:       "duplicate id",
			body:       `{"gutscheinnummer":"202501","kaufdatum":"2025-03-01","betrag":5}`,
			serviceErr: &service.ValidationError{Kind: service.KindDuplicate, Detail: "Die angegebene Gutscheinnummer existiert bereits."},
			wantStatus: 400,
			wantDetail: "Die angegebene Gutscheinnummer existiert bereits.",
		},
		{
			name:       "store failure",
			body:       `{"kaufdatum":"2025-03-01","betrag":5}`,
			serviceErr: errors.New("database is locked"),
			wantStatus: 500,
			wantDetail: "Ein unerwarteter Fehler ist aufgetreten.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			ts.vouchers.addFunc = func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
				if tt.serviceErr != nil {
					return nil, tt.serviceErr
				}
				return &service.AddVoucherResult{ID: "202501"}, nil
			}

			rec := ts.do(http.MethodPost, "/api/gutscheine", tt.body, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			p := decodeProblem(t, rec)
			assert.Equal(t, tt.wantStatus, p.Status)
			assert.Equal(t, http.StatusText(tt.wantStatus), p.Title)
			assert.Equal(t, tt.wantDetail, p.Detail)
		})
	}
}

func TestHandlers_AddVoucher_IdempotencyKey(t *testing.T) {
	ts := newTestServer(nil)
	next := 0
	ts.vouchers.addFunc = func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
		next++
		return &service.AddVoucherResult{ID: []string{"202501", "202502"}[next-1]}, nil
	}
	headers := map[string]string{IdempotencyHeader: "retry-1"}
	body := `{"kaufdatum":"2025-03-01","betrag":50}`

	first := ts.do(http.MethodPost, "/api/gutscheine", body, headers)
	second := ts.do(http.MethodPost, "/api/gutscheine", body, headers)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, 1, ts.vouchers.addCalls)
	assert.Equal(t, 24*time.Hour, ts.store.ttl)

	other := ts.do(http.MethodPost, "/api/gutscheine", body, map[string]string{IdempotencyHeader: "retry-2"})
	assert.JSONEq(t, `{"gutscheinnummer":"202502"}`, other.Body.String())
	assert.Equal(t, 2, ts.vouchers.addCalls)
}

func TestHandlers_AddVoucher_FailuresAreNotCached(t *testing.T) {
	ts := newTestServer(nil)
	ts.vouchers.addFunc = func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
		return nil, &service.ValidationError{Kind: service.KindInvalid, Detail: "Das Kaufdatum ist ungültig."}
	}

	rec := ts.do(http.MethodPost, "/api/gutscheine", `{"kaufdatum":"x","betrag":1}`, map[string]string{IdempotencyHeader: "k"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.store.entries)
}

func TestHandlers_AddVoucher_BodyOfUnknownLength(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{name: "empty", body: "", wantStatus: 400, wantDetail: "Ein Gutschein muss angegeben werden."},
		{name: "malformed", body: `{"betrag":`, wantStatus: 400, wantDetail: "Ungültiger Anfrageinhalt."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			req := httptest.NewRequest(http.MethodPost, "/api/gutscheine", io.NopCloser(strings.NewReader(tt.body)))
			require.Equal(t, int64(-1), req.ContentLength)
			rec := httptest.NewRecorder()

			ts.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, decodeProblem(t, rec).Detail)
			assert.Zero(t, ts.vouchers.addCalls)
		})
	}

	ts := newTestServer(nil)
	req := httptest.NewRequest(http.MethodPost, "/api/gutscheine",
		io.NopCloser(strings.NewReader(`{"kaufdatum":"2025-03-01","betrag":50}`)))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestHandlers_AddVoucher_KeyInFlight(t *testing.T) {
	ts := newTestServer(nil)
	started := make(chan struct{})
	proceed := make(chan struct{})
	ts.vouchers.addFunc = func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
		close(started)
		<-proceed
		return &service.AddVoucherResult{ID: "202501"}, nil
	}
	headers := map[string]string{IdempotencyHeader: "double-click"}
	body := `{"kaufdatum":"2025-03-01","betrag":50}`

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- ts.do(http.MethodPost, "/api/gutscheine", body, headers)
	}()
	<-started

	concurrent := ts.do(http.MethodPost, "/api/gutscheine", body, headers)
	assert.Equal(t, http.StatusConflict, concurrent.Code)
	assert.Equal(t, "Eine Anfrage mit diesem Idempotency-Key wird bereits verarbeitet.", decodeProblem(t, concurrent).Detail)

	close(proceed)
	first := <-done
	require.Equal(t, http.StatusCreated, first.Code)

	retry := ts.do(http.MethodPost, "/api/gutscheine", body, headers)
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, "true", retry.Header().Get(ReplayedHeader))
	assert.Equal(t, 1, ts.vouchers.addCalls)
}

func TestHandlers_AddVoucher_FailureReleasesKey(t *testing.T) {
	ts := newTestServer(nil)
	fail := true
	ts.vouchers.addFunc = func(ctx context.Context, cmd service.AddVoucherCommand) (*service.AddVoucherResult, error) {
		if fail {
			return nil, errors.New("database is locked")
		}
		return &service.AddVoucherResult{ID: "202501"}, nil
	}
	headers := map[string]string{IdempotencyHeader: "retry-after-500"}
	body := `{"kaufdatum":"2025-03-01","betrag":50}`

	first := ts.do(http.MethodPost, "/api/gutscheine", body, headers)
	require.Equal(t, http.StatusInternalServerError, first.Code)

	fail = false
	second := ts.do(http.MethodPost, "/api/gutscheine", body, headers)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Empty(t, second.Header().Get(ReplayedHeader))
	assert.Equal(t, 2, ts.vouchers.addCalls)
}

func TestHandlers_AddVoucher_KeyTooLong(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(http.MethodPost, "/api/gutscheine", `{"kaufdatum":"2025-03-01","betrag":50}`,
		map[string]string{IdempotencyHeader: strings.Repeat("k", 256)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Der Idempotency-Key ist zu lang.", decodeProblem(t, rec).Detail)
	assert.Zero(t, ts.vouchers.addCalls)
}

func TestHandlers_RedeemVoucher(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantBody   string
	}{
		{name: "redeemed", body: `{"eingeloestAm":"2025-03-15"}`, wantStatus: 200, wantBody: `{"gutscheinnummer":"202501","eingeloestAm":"2025-03-15"}`},
		{name: "malformed json", body: `{eingeloestAm}`, wantStatus: 400, wantBody: `{"title":"Bad Request","status":400,"detail":"Ungültiger Anfrageinhalt."}`},
		{
			name:       "not found",
			body:       `{"eingeloestAm":"2025-03-15"}`,
			serviceErr: &service.ValidationError{Kind: service.KindNotFound, Detail: "Der Gutschein wurde nicht gefunden."},
			wantStatus: 404,
			wantBody:   `{"title":"Not Found","status":404,"detail":"Der Gutschein wurde nicht gefunden."}`,
		},
		{
			name:       "concurrent change",
			body:       `{"eingeloestAm":"2025-03-15"}`,
			serviceErr: &service.ValidationError{Kind: service.KindConflict, Detail: "Der Gutschein wurde zwischenzeitlich geändert. Bitte erneut versuchen."},
			wantStatus: 409,
			wantBody:   `{"title":"Conflict","status":409,"detail":"Der Gutschein wurde zwischenzeitlich geändert. Bitte erneut versuchen."}`,
		},
		{
			name:       "already redeemed",
			body:       `{"eingeloestAm":"2025-04-01"}`,
			serviceErr: &service.ValidationError{Kind: service.KindInvalid, Detail: "Der Gutschein wurde bereits am 2025-03-15 eingelöst."},
			wantStatus: 400,
			wantBody:   `{"title":"Bad Request","status":400,"detail":"Der Gutschein wurde bereits am 2025-03-15 eingelöst."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(nil)
			var gotID string
			ts.vouchers.redeemFunc = func(ctx context.Context, cmd service.RedeemVoucherCommand) (*service.RedeemVoucherResult, error) {
				gotID = cmd.ID
				if tt.serviceErr != nil {
					return nil, tt.serviceErr
				}
				return &service.RedeemVoucherResult{ID: cmd.ID, RedeemedDate: cmd.RedeemedDate}, nil
			}

			rec := ts.do(http.MethodPost, "/api/gutscheine/202501/einloesen", tt.body, nil)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			if tt.wantStatus != 400 || tt.serviceErr != nil {
				assert.Equal(t, "202501", gotID)
			}
		})
	}
}

func TestHandlers_ListVouchers(t *testing.T) {
	ts := newTestServer(nil)
	redeemed := "2025-02-01"
	ts.vouchers.listFunc = func(ctx context.Context) ([]service.VoucherSummary, error) {
		return []service.VoucherSummary{
			{ID: "202502", PurchaseDate: "2025-01-01", Amount: 20, RedeemedDate: &redeemed, SoldTo: "Oma"},
			{ID: "202501", PurchaseDate: "2025-01-01", Amount: 10},
		}, nil
	}

	rec := ts.do(http.MethodGet, "/api/gutscheine", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"gutscheinnummer":"202502","kaufdatum":"2025-01-01","betrag":20,"eingeloestAm":"2025-02-01","verkauftAn":"Oma"},
		{"gutscheinnummer":"202501","kaufdatum":"2025-01-01","betrag":10,"eingeloestAm":null}
	]`, rec.Body.String())
}

func TestHandlers_ExportVouchers(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(http.MethodGet, "/api/gutscheine/export", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `attachment; filename="gutscheine-`)
	assert.Equal(t, "PK", rec.Body.String())
}

func TestHandlers_SendMessage(t *testing.T) {
	ts := newTestServer(nil)
	var got service.SendMessageCommand
	ts.messages.sendFunc = func(ctx context.Context, cmd service.SendMessageCommand) (*service.SendMessageResult, error) {
		got = cmd
		return &service.SendMessageResult{RedirectLocation: service.MessageSentLocation}, nil
	}

	form := url.Values{
		"name":           {"Maria"},
		"email":          {"maria@example.com"},
		"message":        {"Hallo!"},
		"privacyConsent": {" ON "},
	}
	rec := ts.do(http.MethodPost, "/api/send-message", form.Encode(),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/nachricht-gesendet", rec.Header().Get("Location"))
	assert.Equal(t, service.SendMessageCommand{Name: "Maria", Email: "maria@example.com", Message: "Hallo!", PrivacyAccepted: true}, got)
}

func TestHandlers_SendMessage_Validation(t *testing.T) {
	ts := newTestServer(nil)
	var consent bool
	ts.messages.sendFunc = func(ctx context.Context, cmd service.SendMessageCommand) (*service.SendMessageResult, error) {
		consent = cmd.PrivacyAccepted
		return nil, &service.ValidationError{Kind: service.KindInvalid, Detail: "Bitte bestätige, dass du die Datenschutzerklärung gelesen hast."}
	}

	rec := ts.do(http.MethodPost, "/api/send-message", "name=a&email=b%40c.at&message=m&privacyConsent=nope",
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, consent)
	assert.Equal(t, "Bitte bestätige, dass du die Datenschutzerklärung gelesen hast.", decodeProblem(t, rec).Detail)
}

func TestHandlers_Messages(t *testing.T) {
	ts := newTestServer(nil)
	ts.messages.listFunc = func(ctx context.Context) ([]service.MessageSummary, error) {
		return []service.MessageSummary{{ID: "m1", Name: "Maria", Email: "m@example.com", Message: "Hi",
			Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}}, nil
	}
	ts.messages.deleteFunc = func(ctx context.Context, id string) error {
		if id == "missing" {
			return &service.ValidationError{Kind: service.KindNotFound, Detail: "Message with id 'missing' was not found."}
		}
		return nil
	}
	ts.messages.countFunc = func(ctx context.Context) (*service.OldMessageCount, error) {
		return &service.OldMessageCount{Count: 3}, nil
	}

	rec := ts.do(http.MethodGet, "/api/messages", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":"m1","name":"Maria","email":"m@example.com","message":"Hi","timestamp":"2025-01-02T03:04:05Z"}]`, rec.Body.String())

	rec = ts.do(http.MethodDelete, "/api/messages/m1", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/messages/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Message with id 'missing' was not found.", decodeProblem(t, rec).Detail)

	rec = ts.do(http.MethodGet, "/api/messages/count-old", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestHandlers_HealthCheck(t *testing.T) {
	healthy := newTestServer(func(ctx context.Context) error { return nil })
	rec := healthy.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	sick := newTestServer(func(ctx context.Context) error { return errors.New("database: closed") })
	rec = sick.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "unhealthy")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(nil)

	rec := ts.do(http.MethodOptions, "/api/gutscheine", "", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), IdempotencyHeader)
}
