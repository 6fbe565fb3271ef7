package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository/memory"
	"github.com/jwalitptl/hospital-api/pkg/event"
	"github.com/jwalitptl/hospital-api/pkg/metrics"
)

type sentMail struct {
	to, subject, body string
}

type fakeMail struct {
	sent []sentMail
	fail map[string]error
}

func (f *fakeMail) Send(_ context.Context, to, subject, body string) error {
	if err := f.fail[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

// chanBroker delivers published payloads to subscribers of the same channel.
type chanBroker struct {
	subs map[string]chan []byte
}

func (b *chanBroker) Publish(_ context.Context, channel string, payload []byte) error {
	if ch, ok := b.subs[channel]; ok {
		ch <- payload
	}
	return nil
}

func (b *chanBroker) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 1)
	b.subs[channel] = ch
	return ch, nil
}

func (b *chanBroker) Close() error { return nil }

type notifierFixture struct {
	notifier *Notifier
	mail     *fakeMail
	metrics  *metrics.Metrics
	house    string
	wilson   string
	cuddy    string
}

func newNotifier(t *testing.T) *notifierFixture {
	t.Helper()
	store := memory.NewStore()
	doctors := memory.NewDoctorRepository(store)

	f := &notifierFixture{
		mail:    &fakeMail{fail: map[string]error{}},
		metrics: metrics.NewMetrics(prometheus.NewRegistry(), "test"),
	}
	for _, d := range []struct {
		first, family, email string
		id                   *string
	}{
		{"Gregory", "House", "house@example.org", &f.house},
		{"James", "Wilson", "wilson@example.org", &f.wilson},
		{"Lisa", "Cuddy", "", &f.cuddy},
	} {
		doc := &model.Doctor{Person: model.Person{FirstName: d.first, FamilyName: d.family}, Email: d.email}
		require.NoError(t, doctors.Create(context.Background(), doc))
		*d.id = doc.ID
	}
	f.notifier = NewNotifier(doctors, f.mail, nil, f.metrics)
	return f
}

func TestNotifierMailsBookedDoctors(t *testing.T) {
	f := newNotifier(t)

	err := f.notifier.Notify(context.Background(), event.SurgeryPayload{
		ID:        "s1",
		Title:     "Biopsy",
		DoctorIDs: []string{f.house, f.cuddy},
		Day:       "2026-03-14",
		Active:    true,
	}, false)
	require.NoError(t, err)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "house@example.org", f.mail.sent[0].to)
	assert.Equal(t, "Surgery booked: Biopsy on 2026-03-14", f.mail.sent[0].subject)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.NotificationsSent.WithLabelValues("sent")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.NotificationsSent.WithLabelValues("skipped")))
}

func TestNotifierIgnoresInactiveSurgeries(t *testing.T) {
	f := newNotifier(t)

	err := f.notifier.Notify(context.Background(), event.SurgeryPayload{
		ID:        "s1",
		DoctorIDs: []string{f.house},
		Active:    false,
	}, true)
	require.NoError(t, err)
	assert.Empty(t, f.mail.sent)
}

func TestNotifierKeepsGoingAfterAFailedMail(t *testing.T) {
	f := newNotifier(t)
	f.mail.fail["house@example.org"] = errors.New("relay refused")

	err := f.notifier.Notify(context.Background(), event.SurgeryPayload{
		ID:        "s1",
		Title:     "Biopsy",
		DoctorIDs: []string{f.house, f.wilson},
		Day:       "2026-03-14",
		Active:    true,
	}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay refused")

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "wilson@example.org", f.mail.sent[0].to)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.NotificationsSent.WithLabelValues("failed")))
}

func TestNotifierConsumesUpdates(t *testing.T) {
	f := newNotifier(t)
	broker := &chanBroker{subs: map[string]chan []byte{}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.notifier.Start(ctx, broker))

	payload, err := json.Marshal(event.SurgeryPayload{
		ID:        "s1",
		Title:     "Biopsy",
		DoctorIDs: []string{f.wilson},
		Day:       "2026-03-14",
		Active:    true,
	})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, event.SurgeryUpdated, payload))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.NotificationsSent.WithLabelValues("sent")) == 1
	}, time.Second, 10*time.Millisecond)
}
