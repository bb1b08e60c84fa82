package notif

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tenantlink/internal/config"
	"tenantlink/internal/dbsql"
	"tenantlink/internal/dbsql/dbtest"
	"tenantlink/internal/logger"
	"tenantlink/internal/metrics"
	"tenantlink/internal/user"
)

const (
	tokenA = "ExponentPushToken[aaaaaaaaaaaaaaaaaaaa]"
	tokenB = "ExponentPushToken[bbbbbbbbbbbbbbbbbbbb]"
	tokenC = "ExpoPushToken[cccccccccccccccccccc]"
)

// fakePush answers every message through respond and keeps each batch it saw.
type fakePush struct {
	mu      sync.Mutex
	batches [][]PushMessage
	respond func(PushMessage) PushTicket
	err     error
}

func (f *fakePush) Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, messages)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]PushTicket, len(messages))
	for i, m := range messages {
		if f.respond != nil {
			out[i] = f.respond(m)
			continue
		}
		out[i] = PushTicket{Token: m.To, Status: TicketOK, ID: "ticket-" + m.To}
	}
	return out, nil
}

func (f *fakePush) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type MockEmailTransport struct {
	mock.Mock
}

func (m *MockEmailTransport) Send(ctx context.Context, msg EmailMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type MockSMSTransport struct {
	mock.Mock
}

func (m *MockSMSTransport) Send(ctx context.Context, msg SMSMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type memRecorder struct {
	mu       sync.Mutex
	attempts []DeliveryAttempt
}

func (r *memRecorder) Record(ctx context.Context, a DeliveryAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

func (r *memRecorder) ForNotification(ctx context.Context, notificationID string) ([]DeliveryAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DeliveryAttempt
	for _, a := range r.attempts {
		if a.NotificationID == notificationID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRecorder) byChannel(channel string) []DeliveryAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []DeliveryAttempt
	for _, a := range r.attempts {
		if a.Channel == channel {
			out = append(out, a)
		}
	}
	return out
}

type memPublisher struct {
	mu    sync.Mutex
	users []string
	err   error
}

func (p *memPublisher) Publish(ctx context.Context, userID string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
	return p.err
}

// failingRepo rejects notification writes for one user.
type failingRepo struct {
	dbsql.NotificationRepository
	failFor string
}

func (r *failingRepo) Create(ctx context.Context, n *dbsql.Notification) error {
	if n.UserID == r.failFor {
		return errors.New("disk full")
	}
	return r.NotificationRepository.Create(ctx, n)
}

type testEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	repo       dbsql.NotificationRepository
	tokens     *TokenRegistry
	push       *fakePush
	email      *MockEmailTransport
	sms        *MockSMSTransport
	recorder   *memRecorder
	publisher  *memPublisher
	dispatcher *Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)
	env := &testEnv{
		db: db,
		cfg: &config.Config{
			Push:         config.PushConfig{BatchSize: 100},
			Notification: config.NotificationConfig{Enabled: true, BulkConcurrency: 4},
			Email:        config.EmailConfig{FromName: "TenantLink"},
		},
		repo:      dbsql.NewNotificationRepository(db),
		push:      &fakePush{},
		email:     &MockEmailTransport{},
		sms:       &MockSMSTransport{},
		recorder:  &memRecorder{},
		publisher: &memPublisher{},
	}
	env.tokens = NewTokenRegistry(user.NewPushTokenRepository(db), metrics.New(), logger.NewNop())
	env.build()
	return env
}

func (e *testEnv) build() {
	e.dispatcher = NewDispatcher(
		e.cfg,
		e.repo,
		e.tokens,
		Transports{Push: e.push, Email: e.email, SMS: e.sms},
		e.publisher,
		e.recorder,
		metrics.New(),
		logger.NewNop(),
	)
}

func (e *testEnv) register(t *testing.T, userID string, tokens ...string) {
	t.Helper()
	for _, tok := range tokens {
		_, err := e.tokens.Register(context.Background(), userID, tok, "test-device")
		require.NoError(t, err)
	}
}
