package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func enqueueOrderPlaced(t *testing.T, repo domain.OutboxRepository, orderID string) domain.OutboxMessage {
	t.Helper()
	msg, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   orderID,
		EventType:     domain.EventTypeOrderPlaced,
		Payload:       []byte(`{"order_id":` + orderID + `}`),
	})
	require.NoError(t, err)
	return msg
}

func TestWorker_ProcessOnce_MarksSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueueOrderPlaced(t, repo, "1")
	enqueueOrderPlaced(t, repo, "2")
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0))
	result := worker.ProcessOnce(context.Background())

	require.Equal(t, BatchResult{Sent: 2}, result)
	require.Equal(t, []string{"1", "2"}, publisher.aggregateIDs())

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestWorker_ProcessOnce_DeadLetterAfterRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	msg := enqueueOrderPlaced(t, repo, "7")
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	deadLetter := &stubPublisher{}

	worker := NewWorker(repo, publisher,
		WithDeadLetter(deadLetter),
		WithRetryBaseDelay(0),
		WithMaxAttempts(3),
	)
	result := worker.ProcessOnce(context.Background())

	require.Equal(t, BatchResult{Failed: 1}, result)
	require.Equal(t, 3, publisher.calls())
	require.Equal(t, 1, deadLetter.calls())

	var payload deadLetterPayload
	require.NoError(t, json.Unmarshal(deadLetter.last().Payload, &payload))
	require.Equal(t, msg.ID, payload.OutboxID)
	require.Contains(t, payload.PublishError, "broker unavailable")
	require.JSONEq(t, `{"order_id":7}`, string(payload.Payload))

	pending, err := repo.PullPending(10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueueOrderPlaced(t, repo, "3")
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}
	m := metrics.NewOutboxMetrics(prometheus.NewRegistry())

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3), WithMetrics(m))
	result := worker.ProcessOnce(context.Background())

	require.Equal(t, BatchResult{Sent: 1}, result)
	require.Equal(t, 3, publisher.calls())
}

func TestWorker_ProcessOnce_RespectsBatchSize(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	for _, id := range []string{"1", "2", "3"} {
		enqueueOrderPlaced(t, repo, id)
	}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithBatchSize(2), WithRetryBaseDelay(0))

	require.Equal(t, BatchResult{Sent: 2}, worker.ProcessOnce(context.Background()))
	require.Equal(t, BatchResult{Sent: 1}, worker.ProcessOnce(context.Background()))
	require.Equal(t, BatchResult{}, worker.ProcessOnce(context.Background()))
}

func TestWorker_ProcessOnce_CanceledContextLeavesPending(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	enqueueOrderPlaced(t, repo, "1")
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewWorker(repo, publisher).ProcessOnce(ctx)
	require.Equal(t, BatchResult{}, result)
	require.Zero(t, publisher.calls())

	stats, err := repo.Stats()
	require.NoError(t, err)
	require.Equal(t, 1, stats.PendingCount)
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(memory.NewOutboxRepository(), &stubPublisher{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewWorker(memory.NewOutboxRepository(), nil).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker without publisher should return immediately")
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	require.Zero(t, backoff(0, 3))
	require.Equal(t, 50*time.Millisecond, backoff(50*time.Millisecond, 1))
	require.Equal(t, 200*time.Millisecond, backoff(50*time.Millisecond, 3))
	require.Equal(t, time.Duration(1<<63-1), backoff(time.Hour, 100))
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	published      []domain.OutboxMessage
	callCount      int
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	err := s.err
	if len(s.sequenceErrors) > 0 {
		err = s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
	}
	if err == nil {
		s.published = append(s.published, msg)
	}
	return err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

func (s *stubPublisher) aggregateIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.published))
	for _, msg := range s.published {
		ids = append(ids, msg.AggregateID)
	}
	return ids
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)
