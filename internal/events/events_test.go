package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/outreach"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func connect(t *testing.T) *nats.Conn {
	server := startTestNATSServer(t)
	nc, err := Connect(server.ClientURL(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []outreach.Completion
	err   error
}

func (f *fakeRecorder) RecordCompletion(_ context.Context, c outreach.Completion) (outreach.CompletionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return outreach.CompletionResult{StepID: c.StepID, Status: c.Status}, f.err
}

func (f *fakeRecorder) recorded() []outreach.Completion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]outreach.Completion(nil), f.calls...)
}

func startConsumer(t *testing.T, nc *nats.Conn, recorder CompletionRecorder) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewConsumer(nc, recorder, zap.NewNop()).Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Wait for the queue subscription to reach the server.
	require.Eventually(t, func() bool {
		return nc.NumSubscriptions() > 0 && nc.Flush() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func request(t *testing.T, nc *nats.Conn, payload string) Ack {
	msg, err := nc.Request(outreach.SubjectTouchCompleted, []byte(payload), 2*time.Second)
	require.NoError(t, err)
	var ack Ack
	require.NoError(t, json.Unmarshal(msg.Data, &ack))
	return ack
}

func TestNATSPublisher_Publish(t *testing.T) {
	nc := connect(t)
	sub, err := nc.SubscribeSync(outreach.SubjectStepScheduled)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	event := outreach.StepScheduledEvent{
		SequenceID:  uuid.New(),
		StepID:      uuid.New(),
		StepOrder:   2,
		Channel:     cadence.ChannelCall,
		ScheduledAt: time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, NewNATSPublisher(nc).Publish(context.Background(), outreach.SubjectStepScheduled, event))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got outreach.StepScheduledEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, event, got)
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	nc := connect(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewNATSPublisher(nc).Publish(ctx, outreach.SubjectTaskCreated, outreach.TaskCreatedEvent{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsumer_RecordsCompletion(t *testing.T) {
	nc := connect(t)
	recorder := &fakeRecorder{}
	startConsumer(t, nc, recorder)

	stepID := uuid.New()
	ack := request(t, nc, `{"step_id":"`+stepID.String()+`","status":"REPLIED","completed_at":"2024-03-10T12:00:00Z"}`)
	assert.True(t, ack.OK)

	calls := recorder.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, stepID, calls[0].StepID)
	assert.Equal(t, "REPLIED", calls[0].Status)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), calls[0].CompletedAt.UTC())
}

func TestConsumer_RejectsInvalidPayload(t *testing.T) {
	nc := connect(t)
	recorder := &fakeRecorder{}
	startConsumer(t, nc, recorder)

	ack := request(t, nc, `{"status":"QUEUED"}`)
	assert.False(t, ack.OK)
	assert.Contains(t, ack.Error, "validation failed")
	assert.Empty(t, recorder.recorded())
}

func TestConsumer_ReportsRecorderError(t *testing.T) {
	nc := connect(t)
	recorder := &fakeRecorder{err: errors.New("step not found")}
	startConsumer(t, nc, recorder)

	ack := request(t, nc, `{"step_id":"`+uuid.NewString()+`","status":"SENT"}`)
	assert.False(t, ack.OK)
	assert.Equal(t, "step not found", ack.Error)
}
