package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"protocol-review-api/models"
)

// memoryStore is an in-process ProtocolStore with the same compare-and-set
// semantics as the gorm store.
type memoryStore struct {
	mu         sync.Mutex
	apps       map[int]models.ProtocolApplication
	events     []models.ReviewEvent
	responses  []models.InvestigatorResponse
	history    []models.ProtocolStatusHistory
	candidates []models.ReviewerCandidate
	nextID     int

	// beforeCommit runs before the compare-and-set, outside the lock.
	beforeCommit func()
	commitErr    error
	listCalls    int
}

var _ ProtocolStore = (*memoryStore)(nil)

func newMemoryStore(candidates ...models.ReviewerCandidate) *memoryStore {
	return &memoryStore{apps: make(map[int]models.ProtocolApplication), candidates: candidates}
}

func (m *memoryStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) put(app models.ProtocolApplication) models.ProtocolApplication {
	m.mu.Lock()
	defer m.mu.Unlock()
	if app.ID == 0 {
		app.ID = m.id()
	}
	if app.Version == 0 {
		app.Version = 1
	}
	m.apps[app.ID] = app
	return app
}

func (m *memoryStore) appendEvent(event models.ReviewEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.id()
	m.events = append(m.events, event)
}

func (m *memoryStore) appendResponse(response models.InvestigatorResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	response.ID = m.id()
	m.responses = append(m.responses, response)
}

func (m *memoryStore) eventsFor(applicationID int) []models.ReviewEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReviewEvent
	for _, e := range m.events {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memoryStore) CreateApplication(_ context.Context, app *models.ProtocolApplication, event *models.ReviewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app.ID = m.id()
	m.apps[app.ID] = *app
	m.history = append(m.history, models.ProtocolStatusHistory{
		HistoryID:     m.id(),
		ApplicationID: app.ID,
		NewStatus:     app.Status,
		ChangedBy:     app.InvestigatorID,
		CreatedAt:     app.CreatedAt,
	})
	if event != nil {
		event.ApplicationID = app.ID
		event.ID = m.id()
		m.events = append(m.events, *event)
	}
	return nil
}

func (m *memoryStore) GetApplication(_ context.Context, id int) (*models.ProtocolApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return &app, nil
}

func (m *memoryStore) ListApplications(_ context.Context, filter ApplicationFilter) ([]models.ProtocolApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProtocolApplication
	for _, app := range m.apps {
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.InvestigatorID > 0 && app.InvestigatorID != filter.InvestigatorID {
			continue
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryStore) CommitTransition(_ context.Context, commit TransitionCommit) error {
	if m.beforeCommit != nil {
		m.beforeCommit()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}

	stored, ok := m.apps[commit.Updated.ID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, commit.Updated.ID)
	}
	if stored.Status != commit.ExpectedStatus || stored.Version != commit.ExpectedVersion {
		return fmt.Errorf("%w: protocol application %d", ErrConcurrentModification, stored.ID)
	}

	m.apps[stored.ID] = commit.Updated
	event := commit.Event
	event.ID = m.id()
	m.events = append(m.events, event)
	if commit.History != nil {
		history := *commit.History
		history.HistoryID = m.id()
		m.history = append(m.history, history)
	}
	return nil
}

func (m *memoryStore) LoadTimelineSnapshot(_ context.Context, applicationID int) (*TimelineSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[applicationID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, applicationID)
	}
	snapshot := &TimelineSnapshot{Application: app}
	for _, e := range m.events {
		if e.ApplicationID == applicationID {
			snapshot.Events = append(snapshot.Events, e)
		}
	}
	for _, r := range m.responses {
		if r.ApplicationID == applicationID {
			snapshot.Responses = append(snapshot.Responses, r)
		}
	}
	return snapshot, nil
}

func (m *memoryStore) ListStatusHistory(_ context.Context, applicationID int) ([]models.ProtocolStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProtocolStatusHistory
	for _, h := range m.history {
		if h.ApplicationID == applicationID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memoryStore) ListReviewerCandidates(context.Context) ([]models.ReviewerCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := make([]models.ReviewerCandidate, len(m.candidates))
	copy(out, m.candidates)
	return out, nil
}

func (m *memoryStore) setCandidates(candidates ...models.ReviewerCandidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidates = candidates
}
