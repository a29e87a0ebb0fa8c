package outreach

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTracker(store *fakeStore, pub Publisher) *Tracker {
	scheduler := newTestScheduler(store, pub)
	tr := NewTracker(store, scheduler, cadence.DefaultConfig, pub, zap.NewNop())
	tr.now = func() time.Time { return testNow }
	return tr
}

func TestRecordCompletion_SentDraftsNextStep(t *testing.T) {
	store := newFakeStore()
	contact := store.addContact(strPtr("a@example.com"), strPtr("+15550100"), nil)
	seq := store.addSequence(contact.ID, db.SequenceStatusActive)
	step := store.addStep(seq.ID, 1, db.StepStatusQueued, cadence.ChannelEmail, testNow.Add(-time.Hour), nil)

	result, err := newTestTracker(store, nil).RecordCompletion(context.Background(), Completion{
		StepID:      step.ID,
		Status:      db.StepStatusSent,
		CompletedAt: testNow,
	})
	require.NoError(t, err)

	assert.Equal(t, seq.ID, result.SequenceID)
	assert.Equal(t, db.StepStatusSent, result.Status)
	assert.False(t, result.Won)
	require.NotNil(t, result.Evaluation)
	assert.True(t, result.Evaluation.Created)
	assert.Equal(t, testNow.Add(72*time.Hour), *result.Evaluation.ScheduledAt)

	steps := store.stepsOf(seq.ID)
	require.Len(t, steps, 2)
	require.NotNil(t, steps[0].SentAt)
	assert.Equal(t, testNow, *steps[0].SentAt)
	assert.Equal(t, cadence.ChannelCall, steps[1].Channel)
	assert.Equal(t, db.StepStatusDrafted, steps[1].Status)
}

func TestRecordCompletion_BookedWinsSequence(t *testing.T) {
	store := newFakeStore()
	contact := store.addContact(strPtr("a@example.com"), nil, nil)
	seq := store.addSequence(contact.ID, db.SequenceStatusActive)
	sent := testNow.Add(-time.Hour)
	step := store.addStep(seq.ID, 1, db.StepStatusSent, cadence.ChannelEmail, sent, &sent)
	pub := &recordingPublisher{}

	result, err := newTestTracker(store, pub).RecordCompletion(context.Background(), Completion{
		StepID: step.ID,
		Status: db.StepStatusBooked,
	})
	require.NoError(t, err)

	assert.True(t, result.Won)
	assert.Nil(t, result.Evaluation)
	assert.Equal(t, db.SequenceStatusClosedWon, store.sequence(seq.ID).Status)
	assert.Equal(t, db.StepStatusBooked, store.step(step.ID).Status)
	assert.Equal(t, sent, *store.step(step.ID).SentAt)
	assert.Equal(t, []string{SubjectSequenceClosed}, pub.subjects())
}

func TestRecordCompletion_NeverDowngrades(t *testing.T) {
	store := newFakeStore()
	contact := store.addContact(strPtr("a@example.com"), nil, nil)
	seq := store.addSequence(contact.ID, db.SequenceStatusActive)
	sent := testNow.Add(-time.Hour)
	step := store.addStep(seq.ID, 1, db.StepStatusReplied, cadence.ChannelEmail, sent, &sent)
	store.addStep(seq.ID, 2, db.StepStatusDrafted, cadence.ChannelEmail, testNow.Add(time.Hour), nil)

	result, err := newTestTracker(store, nil).RecordCompletion(context.Background(), Completion{
		StepID: step.ID,
		Status: db.StepStatusOpened,
	})
	require.NoError(t, err)
	assert.Equal(t, db.StepStatusReplied, result.Status)
	assert.Equal(t, db.StepStatusReplied, store.step(step.ID).Status)
	assert.False(t, result.Evaluation.Created)
}

func TestRecordCompletion_RejectsDraftedStep(t *testing.T) {
	store := newFakeStore()
	contact := store.addContact(strPtr("a@example.com"), nil, nil)
	seq := store.addSequence(contact.ID, db.SequenceStatusActive)
	step := store.addStep(seq.ID, 1, db.StepStatusDrafted, cadence.ChannelEmail, testNow, nil)

	_, err := newTestTracker(store, nil).RecordCompletion(context.Background(), Completion{
		StepID: step.ID,
		Status: db.StepStatusSent,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, db.StepStatusDrafted, store.step(step.ID).Status)
}

func TestRecordCompletion_RejectsUnknownStatus(t *testing.T) {
	store := newFakeStore()

	_, err := newTestTracker(store, nil).RecordCompletion(context.Background(), Completion{
		StepID: uuid.New(),
		Status: db.StepStatusQueued,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Zero(t, store.txCount)
}

func TestRecordCompletion_StepNotFound(t *testing.T) {
	store := newFakeStore()

	_, err := newTestTracker(store, nil).RecordCompletion(context.Background(), Completion{
		StepID: uuid.New(),
		Status: db.StepStatusSent,
	})
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestRecordCompletion_FinalTouchExhaustsSequence(t *testing.T) {
	store := newFakeStore()
	contact := store.addContact(strPtr("a@example.com"), nil, nil)
	seq := store.addSequence(contact.ID, db.SequenceStatusActive)
	for i := 1; i <= 3; i++ {
		sent := testNow.Add(-time.Duration(10-i) * 24 * time.Hour)
		store.addStep(seq.ID, i, db.StepStatusSent, cadence.ChannelEmail, sent, &sent)
	}
	last := store.addStep(seq.ID, 4, db.StepStatusQueued, cadence.ChannelEmail, testNow.Add(-time.Hour), nil)

	result, err := newTestTracker(store, nil).RecordCompletion(context.Background(), Completion{
		StepID: last.ID,
		Status: db.StepStatusSent,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Evaluation)
	assert.True(t, result.Evaluation.Closed)
	assert.Equal(t, db.SequenceStatusClosedLost, store.sequence(seq.ID).Status)
	assert.Len(t, store.stepsOf(seq.ID), 4)
}
