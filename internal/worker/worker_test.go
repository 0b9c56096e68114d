package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
)

type stubAdvancer struct {
	calls    int
	advanced bool
	err      error
}

func (s *stubAdvancer) AutoAdvanceQueue(context.Context) (bool, error) {
	s.calls++
	return s.advanced, s.err
}

func TestAutoAdvanceWorker_RunOnce(t *testing.T) {
	adv := &stubAdvancer{advanced: true}
	w := NewAutoAdvanceWorker(adv, time.Minute, nil)
	assert.True(t, w.RunOnce(context.Background()))

	adv.err = errors.New("store down")
	assert.False(t, w.RunOnce(context.Background()))
	assert.Equal(t, 2, adv.calls)
}

func TestAutoAdvanceWorker_StopsWithContext(t *testing.T) {
	w := NewAutoAdvanceWorker(&stubAdvancer{}, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type chanBroker struct {
	ch chan []byte
}

func (b *chanBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	b.ch <- message.([]byte)
	return nil
}

func (b *chanBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return b.ch, nil
}

func (b *chanBroker) Close() error {
	close(b.ch)
	return nil
}

type recordingEmail struct {
	mu      sync.Mutex
	changes []model.StatusChangedPayload
}

func (r *recordingEmail) SendStatusUpdate(ctx context.Context, change model.StatusChangedPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return nil
}

func (r *recordingEmail) SendCustom(context.Context, string, string, string) error {
	return nil
}

func (r *recordingEmail) received() []model.StatusChangedPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.StatusChangedPayload(nil), r.changes...)
}

func TestStatusMailer_DeliversDecodedEvents(t *testing.T) {
	broker := &chanBroker{ch: make(chan []byte, 2)}
	mail := &recordingEmail{}
	mailer := NewStatusMailer(messaging.NewBrokerAdapter(broker, nil), mail, nil)

	require.NoError(t, mailer.Start(context.Background()))
	defer broker.Close()

	id := uuid.New()
	broker.ch <- []byte(`not json`)
	broker.ch <- []byte(`{"booking_id":"` + id.String() + `","from":"confirmed","to":"intake"}`)

	require.Eventually(t, func() bool { return len(mail.received()) == 1 }, time.Second, 5*time.Millisecond)
	got := mail.received()[0]
	assert.Equal(t, id, got.BookingID)
	assert.Equal(t, model.StatusIntake, got.To)
}

func TestStatusMailer_HandleRejectsGarbage(t *testing.T) {
	mailer := NewStatusMailer(nil, &recordingEmail{}, nil)
	assert.Error(t, mailer.Handle(context.Background(), []byte("{")))
}
