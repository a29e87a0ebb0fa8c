package outreach

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/outreach-cadence/internal/cadence"
	"github.com/jonathan/outreach-cadence/internal/db"
)

// fakeStore is an in-memory Store. WithTx serializes callers and restores the previous
// state when fn fails, mirroring a rolled back transaction.
type fakeStore struct {
	mu sync.Mutex

	contacts   map[uuid.UUID]db.Contact
	sequences  map[uuid.UUID]db.Sequence
	steps      map[uuid.UUID]db.Step
	tasks      map[uuid.UUID]db.TouchTaskLog
	engagement map[uuid.UUID]cadence.EngagementSignals

	// failures forces the named repository method to return the error.
	failures map[string]error
	txCount  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		contacts:   map[uuid.UUID]db.Contact{},
		sequences:  map[uuid.UUID]db.Sequence{},
		steps:      map[uuid.UUID]db.Step{},
		tasks:      map[uuid.UUID]db.TouchTaskLog{},
		engagement: map[uuid.UUID]cadence.EngagementSignals{},
		failures:   map[string]error{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++

	snapshot := f.snapshot()
	if err := fn(&fakeRepo{f: f}); err != nil {
		f.restore(snapshot)
		return err
	}
	return nil
}

type fakeState struct {
	contacts   map[uuid.UUID]db.Contact
	sequences  map[uuid.UUID]db.Sequence
	steps      map[uuid.UUID]db.Step
	tasks      map[uuid.UUID]db.TouchTaskLog
	engagement map[uuid.UUID]cadence.EngagementSignals
}

func copyMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeStore) snapshot() fakeState {
	return fakeState{
		contacts:   copyMap(f.contacts),
		sequences:  copyMap(f.sequences),
		steps:      copyMap(f.steps),
		tasks:      copyMap(f.tasks),
		engagement: copyMap(f.engagement),
	}
}

func (f *fakeStore) restore(s fakeState) {
	f.contacts = s.contacts
	f.sequences = s.sequences
	f.steps = s.steps
	f.tasks = s.tasks
	f.engagement = s.engagement
}

// Test helpers, called outside WithTx.

func (f *fakeStore) addContact(email, phone, linkedin *string) db.Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := db.Contact{ID: uuid.New(), Email: email, Phone: phone, LinkedInURL: linkedin, CreatedAt: time.Now()}
	f.contacts[c.ID] = c
	return c
}

func (f *fakeStore) addSequence(contactID uuid.UUID, status string) db.Sequence {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := db.Sequence{ID: uuid.New(), ContactID: contactID, ProspectID: uuid.New(), Status: status, CreatedAt: time.Now()}
	f.sequences[s.ID] = s
	return s
}

func (f *fakeStore) addStep(sequenceID uuid.UUID, order int, status string, channel cadence.Channel, readyAt time.Time, sentAt *time.Time) db.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := db.Step{
		ID:              uuid.New(),
		SequenceID:      sequenceID,
		StepOrder:       order,
		Status:          status,
		Channel:         channel,
		ScheduledAt:     readyAt,
		NextStepReadyAt: readyAt,
		SentAt:          sentAt,
		TriggeredBy:     db.TriggeredByCadence,
	}
	f.steps[s.ID] = s
	return s
}

func (f *fakeStore) setSignals(prospectID uuid.UUID, s cadence.EngagementSignals) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.engagement[prospectID] = s
}

func (f *fakeStore) sequence(id uuid.UUID) db.Sequence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sequences[id]
}

func (f *fakeStore) step(id uuid.UUID) db.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.steps[id]
}

func (f *fakeStore) stepsOf(sequenceID uuid.UUID) []db.Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedSteps(sequenceID)
}

func (f *fakeStore) taskList() []db.TouchTaskLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.TouchTaskLog, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	return out
}

func (f *fakeStore) sortedSteps(sequenceID uuid.UUID) []db.Step {
	out := []db.Step{}
	for _, s := range f.steps {
		if s.SequenceID == sequenceID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StepOrder < out[j].StepOrder })
	return out
}

type fakeRepo struct {
	f *fakeStore
}

func (r *fakeRepo) fail(method string) error {
	return r.f.failures[method]
}

func (r *fakeRepo) FindSequence(ctx context.Context, id uuid.UUID) (*db.Sequence, error) {
	if err := r.fail("FindSequence"); err != nil {
		return nil, err
	}
	return r.GetSequence(ctx, id)
}

func (r *fakeRepo) GetSequence(_ context.Context, id uuid.UUID) (*db.Sequence, error) {
	seq, ok := r.f.sequences[id]
	if !ok {
		return nil, db.ErrSequenceNotFound
	}
	contact := r.f.contacts[seq.ContactID]
	seq.Contact = &contact
	seq.Steps = r.f.sortedSteps(id)
	return &seq, nil
}

func (r *fakeRepo) CreateSequence(_ context.Context, contactID, prospectID uuid.UUID) (*db.Sequence, error) {
	if _, ok := r.f.contacts[contactID]; !ok {
		return nil, db.ErrContactNotFound
	}
	for _, s := range r.f.sequences {
		if s.ContactID == contactID && !db.IsTerminalSequenceStatus(s.Status) {
			return nil, db.ErrActiveSequenceExists
		}
	}
	seq := db.Sequence{ID: uuid.New(), ContactID: contactID, ProspectID: prospectID, Status: db.SequenceStatusActive, Steps: []db.Step{}}
	r.f.sequences[seq.ID] = seq
	return &seq, nil
}

func (r *fakeRepo) UpdateSequenceStatus(_ context.Context, id uuid.UUID, status string) error {
	if err := r.fail("UpdateSequenceStatus"); err != nil {
		return err
	}
	seq, ok := r.f.sequences[id]
	if !ok {
		return db.ErrSequenceNotFound
	}
	seq.Status = status
	if db.IsTerminalSequenceStatus(status) && seq.ClosedAt == nil {
		now := time.Now()
		seq.ClosedAt = &now
	}
	r.f.sequences[id] = seq
	return nil
}

func (r *fakeRepo) CreateStep(_ context.Context, input db.StepInput) (*db.Step, error) {
	if err := r.fail("CreateStep"); err != nil {
		return nil, err
	}
	for _, s := range r.f.steps {
		if s.SequenceID == input.SequenceID && s.StepOrder == input.StepOrder {
			return nil, db.ErrStepConflict
		}
	}
	step := db.Step{
		ID:              uuid.New(),
		SequenceID:      input.SequenceID,
		StepOrder:       input.StepOrder,
		Status:          input.Status,
		Channel:         input.Channel,
		ScheduledAt:     input.ScheduledAt,
		NextStepReadyAt: input.ScheduledAt,
		TriggeredBy:     input.TriggeredBy,
	}
	r.f.steps[step.ID] = step
	return &step, nil
}

func (r *fakeRepo) FindStep(_ context.Context, id uuid.UUID) (*db.Step, error) {
	step, ok := r.f.steps[id]
	if !ok {
		return nil, db.ErrStepNotFound
	}
	return &step, nil
}

func (r *fakeRepo) FindDueSteps(_ context.Context, readyBefore time.Time, limit int) ([]db.DueStep, error) {
	if err := r.fail("FindDueSteps"); err != nil {
		return nil, err
	}
	due := []db.DueStep{}
	for _, s := range r.f.steps {
		seq := r.f.sequences[s.SequenceID]
		if s.Status != db.StepStatusDrafted || s.NextStepReadyAt.After(readyBefore) || seq.Status != db.SequenceStatusActive {
			continue
		}
		due = append(due, db.DueStep{Step: s, ContactID: seq.ContactID, ProspectID: seq.ProspectID})
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextStepReadyAt.Equal(due[j].NextStepReadyAt) {
			return due[i].NextStepReadyAt.Before(due[j].NextStepReadyAt)
		}
		return due[i].ID.String() < due[j].ID.String()
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeRepo) UpdateStep(_ context.Context, id uuid.UUID, status string, logID *uuid.UUID) error {
	if err := r.fail("UpdateStep"); err != nil {
		return err
	}
	step, ok := r.f.steps[id]
	if !ok {
		return db.ErrStepNotFound
	}
	step.Status = status
	if logID != nil {
		step.TouchTaskLogID = logID
	}
	r.f.steps[id] = step
	return nil
}

func (r *fakeRepo) MarkStepCompleted(_ context.Context, id uuid.UUID, status string, completedAt time.Time) error {
	step, ok := r.f.steps[id]
	if !ok {
		return db.ErrStepNotFound
	}
	step.Status = status
	if step.SentAt == nil {
		step.SentAt = &completedAt
	}
	r.f.steps[id] = step
	return nil
}

func (r *fakeRepo) CloseOpenSteps(_ context.Context, sequenceID uuid.UUID) (int, error) {
	if err := r.fail("CloseOpenSteps"); err != nil {
		return 0, err
	}
	n := 0
	for id, s := range r.f.steps {
		if s.SequenceID == sequenceID && db.IsOpenStepStatus(s.Status) {
			s.Status = db.StepStatusClosedLost
			r.f.steps[id] = s
			n++
		}
	}
	return n, nil
}

func (r *fakeRepo) CreateTouchTaskLog(_ context.Context, input db.TouchTaskInput) (*db.TouchTaskLog, error) {
	if err := r.fail("CreateTouchTaskLog"); err != nil {
		return nil, err
	}
	task := db.TouchTaskLog{
		ID:        uuid.New(),
		ContactID: input.ContactID,
		StepID:    input.StepID,
		Type:      input.Type,
		Channel:   input.Channel,
		Subject:   input.Subject,
		Status:    input.Status,
		CreatedAt: time.Now(),
	}
	r.f.tasks[task.ID] = task
	return &task, nil
}

func (r *fakeRepo) CreateContact(_ context.Context, input db.ContactInput) (*db.Contact, error) {
	c := db.Contact{ID: uuid.New(), Email: input.Email, Phone: input.Phone, LinkedInURL: input.LinkedInURL, CreatedAt: time.Now()}
	r.f.contacts[c.ID] = c
	return &c, nil
}

func (r *fakeRepo) FindEngagementSignals(_ context.Context, prospectID uuid.UUID) (*cadence.EngagementSignals, error) {
	if err := r.fail("FindEngagementSignals"); err != nil {
		return nil, err
	}
	s, ok := r.f.engagement[prospectID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *fakeRepo) UpsertEngagementSignals(_ context.Context, prospectID uuid.UUID, signals cadence.EngagementSignals) (*db.EngagementRecord, error) {
	cur := r.f.engagement[prospectID]
	if signals.WizardMaxStep > cur.WizardMaxStep {
		cur.WizardMaxStep = signals.WizardMaxStep
	}
	if signals.EmailOpens > cur.EmailOpens {
		cur.EmailOpens = signals.EmailOpens
	}
	cur.PDFDownloaded = cur.PDFDownloaded || signals.PDFDownloaded
	r.f.engagement[prospectID] = cur
	return &db.EngagementRecord{ProspectID: prospectID, Signals: cur, UpdatedAt: time.Now()}, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

type publishedEvent struct {
	Subject string
	Event   any
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Subject: subject, Event: event})
	return p.err
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Subject)
	}
	return out
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
