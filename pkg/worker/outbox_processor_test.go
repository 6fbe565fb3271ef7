package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/logger"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return m.Called(ctx, channel, payload).Error(0)
}

func (m *mockBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	args := m.Called(ctx, channel)
	ch, _ := args.Get(0).(<-chan []byte)
	return ch, args.Error(1)
}

func (m *mockBroker) Close() error {
	return nil
}

// fakeOutbox hands its events to the callback and records outcomes.
type fakeOutbox struct {
	events  []*model.OutboxEvent
	results map[uuid.UUID]error
}

func (f *fakeOutbox) Create(_ context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) ProcessPending(_ context.Context, limit, _ int, fn func(*model.OutboxEvent) error) (int, error) {
	f.results = map[uuid.UUID]error{}
	ok := 0
	for i, event := range f.events {
		if i == limit {
			break
		}
		err := fn(event)
		f.results[event.ID] = err
		if err == nil {
			ok++
		}
	}
	return ok, nil
}

func (f *fakeOutbox) DeleteProcessedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newProcessor(t *testing.T, repo *fakeOutbox, broker *mockBroker) (*OutboxProcessor, *metrics.Metrics) {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry(), "test")
	p, err := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.Nop(), m)
	require.NoError(t, err)
	return p, m
}

func TestProcessOncePublishesOnEventChannel(t *testing.T) {
	ok := &model.OutboxEvent{ID: uuid.New(), EventType: "surgery.created", Payload: []byte(`{"id":"s1"}`)}
	bad := &model.OutboxEvent{ID: uuid.New(), EventType: "surgery.deleted", Payload: []byte(`{"id":"s2"}`)}
	repo := &fakeOutbox{events: []*model.OutboxEvent{ok, bad}}

	broker := &mockBroker{}
	broker.On("Publish", mock.Anything, "surgery.created", []byte(`{"id":"s1"}`)).Return(nil).Once()
	broker.On("Publish", mock.Anything, "surgery.deleted", mock.Anything).Return(errors.New("redis down")).Twice()

	p, m := newProcessor(t, repo, broker)
	n, err := p.ProcessOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, repo.results[ok.ID])
	assert.EqualError(t, repo.results[bad.ID], "redis down")
	broker.AssertExpectations(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxEventsFailed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxRetries.WithLabelValues("surgery.deleted")))
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	_, err := NewOutboxProcessor(&fakeOutbox{}, &mockBroker{}, OutboxProcessorConfig{}, logger.Nop(), nil)
	assert.Error(t, err)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry(ctx, 5, time.Hour, func() error {
		calls++
		return errors.New("fail")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
