package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/google/uuid"
)

// Mock repositories
type mockVoucherRepo struct {
	getAllFunc  func(ctx context.Context) ([]*entity.Voucher, error)
	getByIDFunc func(ctx context.Context, id string) (*entity.Voucher, error)
	createFunc  func(ctx context.Context, voucher *entity.Voucher) error
	updateFunc  func(ctx context.Context, voucher *entity.Voucher) error
}

func (m *mockVoucherRepo) GetAll(ctx context.Context) ([]*entity.Voucher, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx)
	}
	return []*entity.Voucher{}, nil
}

func (m *mockVoucherRepo) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockVoucherRepo) Create(ctx context.Context, voucher *entity.Voucher) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, voucher)
	}
	return nil
}

func (m *mockVoucherRepo) Update(ctx context.Context, voucher *entity.Voucher) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, voucher)
	}
	return nil
}

// memoryVoucherRepo keeps vouchers in a map and enforces the store's
// insert-if-absent and etag rules
type memoryVoucherRepo struct {
	mu       sync.Mutex
	vouchers map[string]entity.Voucher
	updates  int
}

func newMemoryVoucherRepo(seed ...*entity.Voucher) *memoryVoucherRepo {
	repo := &memoryVoucherRepo{vouchers: map[string]entity.Voucher{}}
	for _, v := range seed {
		_ = repo.Create(context.Background(), v)
	}
	return repo
}

func (r *memoryVoucherRepo) GetAll(ctx context.Context) ([]*entity.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.vouchers))
	for id := range r.vouchers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*entity.Voucher, 0, len(ids))
	for _, id := range ids {
		v := r.vouchers[id]
		out = append(out, &v)
	}
	return out, nil
}

func (r *memoryVoucherRepo) GetByID(ctx context.Context, id string) (*entity.Voucher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vouchers[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *memoryVoucherRepo) Create(ctx context.Context, voucher *entity.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vouchers[voucher.ID]; ok {
		return port.ErrAlreadyExists
	}
	voucher.ETag = uuid.NewString()
	voucher.Timestamp = time.Now()
	r.vouchers[voucher.ID] = *voucher
	return nil
}

func (r *memoryVoucherRepo) Update(ctx context.Context, voucher *entity.Voucher) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.vouchers[voucher.ID]
	if !ok || stored.ETag != voucher.ETag {
		return port.ErrPreconditionFailed
	}
	voucher.ETag = uuid.NewString()
	r.vouchers[voucher.ID] = *voucher
	r.updates++
	return nil
}

type mockMessageRepo struct {
	createFunc         func(ctx context.Context, message *entity.Message) error
	listFunc           func(ctx context.Context) ([]*entity.Message, error)
	deleteFunc         func(ctx context.Context, id string) error
	countOlderThanFunc func(ctx context.Context, cutoff time.Time) (int, error)
}

func (m *mockMessageRepo) Create(ctx context.Context, message *entity.Message) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, message)
	}
	return nil
}

func (m *mockMessageRepo) List(ctx context.Context) ([]*entity.Message, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []*entity.Message{}, nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockMessageRepo) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if m.countOlderThanFunc != nil {
		return m.countOlderThanFunc(ctx, cutoff)
	}
	return 0, nil
}

type mockEmailSender struct {
	sendFunc func(ctx context.Context, email port.Email) error
	sent     []port.Email
}

func (m *mockEmailSender) Send(ctx context.Context, email port.Email) error {
	m.sent = append(m.sent, email)
	if m.sendFunc != nil {
		return m.sendFunc(ctx, email)
	}
	return nil
}

type mockExporter struct {
	exportFunc func(ctx context.Context, vouchers []*entity.Voucher) ([]byte, error)
}

func (m *mockExporter) Export(ctx context.Context, vouchers []*entity.Voucher) ([]byte, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, vouchers)
	}
	return []byte("xlsx"), nil
}

type mockMetrics struct {
	created, redeemed, received int
	alpakas, events             int
}

func (m *mockMetrics) VoucherCreated()  { m.created++ }
func (m *mockMetrics) VoucherRedeemed() { m.redeemed++ }
func (m *mockMetrics) MessageReceived() { m.received++ }
func (m *mockMetrics) AlpakaCreated()   { m.alpakas++ }
func (m *mockMetrics) EventCreated()    { m.events++ }

type mockAlpakaRepo struct {
	listFunc    func(ctx context.Context) ([]*entity.Alpaka, error)
	getByIDFunc func(ctx context.Context, id string) (*entity.Alpaka, error)
	createFunc  func(ctx context.Context, alpaka *entity.Alpaka) error
	updateFunc  func(ctx context.Context, alpaka *entity.Alpaka) error
	namesFunc   func(ctx context.Context) (map[string]string, error)
	created     []*entity.Alpaka
	updated     []*entity.Alpaka
}

func (m *mockAlpakaRepo) List(ctx context.Context) ([]*entity.Alpaka, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return []*entity.Alpaka{}, nil
}

func (m *mockAlpakaRepo) GetByID(ctx context.Context, id string) (*entity.Alpaka, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAlpakaRepo) Create(ctx context.Context, alpaka *entity.Alpaka) error {
	if alpaka.ID == "" {
		alpaka.ID = uuid.NewString()
	}
	m.created = append(m.created, alpaka)
	if m.createFunc != nil {
		return m.createFunc(ctx, alpaka)
	}
	return nil
}

func (m *mockAlpakaRepo) Update(ctx context.Context, alpaka *entity.Alpaka) error {
	m.updated = append(m.updated, alpaka)
	if m.updateFunc != nil {
		return m.updateFunc(ctx, alpaka)
	}
	return nil
}

func (m *mockAlpakaRepo) Names(ctx context.Context) (map[string]string, error) {
	if m.namesFunc != nil {
		return m.namesFunc(ctx)
	}
	return map[string]string{}, nil
}

type mockEventRepo struct {
	getAllFunc    func(ctx context.Context) ([]*entity.Event, error)
	createAllFunc func(ctx context.Context, events []*entity.Event) error
	created       []*entity.Event
}

func (m *mockEventRepo) GetAll(ctx context.Context) ([]*entity.Event, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx)
	}
	return []*entity.Event{}, nil
}

func (m *mockEventRepo) CreateAll(ctx context.Context, events []*entity.Event) error {
	if m.createAllFunc != nil {
		if err := m.createAllFunc(ctx, events); err != nil {
			return err
		}
	}
	m.created = append(m.created, events...)
	return nil
}

// memoryImageStore keeps images in a map; failDelete makes Delete fail
type memoryImageStore struct {
	images     map[string][]byte
	failSave   error
	failDelete error
}

func newMemoryImageStore() *memoryImageStore {
	return &memoryImageStore{images: map[string][]byte{}}
}

func (m *memoryImageStore) Save(ctx context.Context, name string, content []byte) error {
	if m.failSave != nil {
		return m.failSave
	}
	m.images[name] = content
	return nil
}

func (m *memoryImageStore) Read(ctx context.Context, name string) ([]byte, error) {
	content, ok := m.images[name]
	if !ok {
		return nil, port.ErrNotFound
	}
	return content, nil
}

func (m *memoryImageStore) Delete(ctx context.Context, name string) error {
	if m.failDelete != nil {
		return m.failDelete
	}
	delete(m.images, name)
	return nil
}

// stubSigner produces "signed:<name>" links and accepts "token:<name>"
type stubSigner struct {
	lifetimes []time.Duration
	failSign  error
}

func (s *stubSigner) SignURL(name string, lifetime time.Duration) (string, error) {
	if s.failSign != nil {
		return "", s.failSign
	}
	s.lifetimes = append(s.lifetimes, lifetime)
	return "signed:" + name, nil
}

func (s *stubSigner) Verify(token string) (string, error) {
	name, ok := strings.CutPrefix(token, "token:")
	if !ok {
		return "", port.ErrInvalidImageToken
	}
	return name, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
