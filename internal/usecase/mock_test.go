package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/totegamma/passgate/internal/domain"
)

type mockPassRepo struct {
	mu        sync.Mutex
	passes    map[uint]domain.Pass
	nextID    uint
	active    *domain.Pass
	findErr   error
	findPanic bool
	queries   []ActiveQuery
	statusSet []uint
}

func newMockPassRepo() *mockPassRepo {
	return &mockPassRepo{passes: map[uint]domain.Pass{}}
}

func (m *mockPassRepo) Create(ctx context.Context, pass domain.Pass) (domain.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	pass.ID = m.nextID
	pass.CreatedAt = time.Now()
	m.passes[pass.ID] = pass
	return pass, nil
}

func (m *mockPassRepo) Update(ctx context.Context, pass domain.Pass) (domain.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passes[pass.ID] = pass
	return pass, nil
}

func (m *mockPassRepo) SetStatus(ctx context.Context, id uint, status domain.PassStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass := m.passes[id]
	pass.Status = status
	m.passes[id] = pass
	m.statusSet = append(m.statusSet, id)
	return nil
}

func (m *mockPassRepo) SoftDelete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass := m.passes[id]
	deleted := time.Now()
	pass.DeletedAt = &deleted
	m.passes[id] = pass
	return nil
}

func (m *mockPassRepo) Get(ctx context.Context, id uint) (domain.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass, ok := m.passes[id]
	if !ok || pass.DeletedAt != nil {
		return domain.Pass{}, domain.NotFoundError{Resource: "pass"}
	}
	return pass, nil
}

func (m *mockPassRepo) List(ctx context.Context, filter domain.PassFilter) ([]domain.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Pass
	for _, pass := range m.passes {
		if filter.UserID != 0 && pass.UserID != filter.UserID {
			continue
		}
		out = append(out, pass)
	}
	return out, nil
}

func (m *mockPassRepo) FindActive(ctx context.Context, query ActiveQuery) (*domain.Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	if m.findPanic {
		panic("store exploded")
	}
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.active == nil {
		return nil, nil
	}
	found := *m.active
	return &found, nil
}

type mockEventRepo struct {
	mu     sync.Mutex
	events []domain.LprEvent
	err    error
}

func (m *mockEventRepo) Create(ctx context.Context, event domain.LprEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventRepo) List(ctx context.Context, filter domain.EventFilter) ([]domain.LprEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LprEvent
	for _, e := range m.events {
		if filter.RequestID != "" && e.RequestID != filter.RequestID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockEventRepo) byType(t domain.EventType) []domain.LprEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.LprEvent
	for _, e := range m.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}

type mockSettingsRepo struct {
	mu       sync.Mutex
	settings *domain.GateSettings
	err      error
	reads    int
}

func (m *mockSettingsRepo) Latest(ctx context.Context) (*domain.GateSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		return nil, nil
	}
	s := *m.settings
	return &s, nil
}

func (m *mockSettingsRepo) Create(ctx context.Context, settings domain.GateSettings) (domain.GateSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	settings.ID = 1
	m.settings = &settings
	return settings, nil
}

func (m *mockSettingsRepo) Update(ctx context.Context, settings domain.GateSettings) (domain.GateSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &settings
	return settings, nil
}

type sentNotification struct {
	event        string
	notification domain.Notification
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (m *mockNotifier) Notify(ctx context.Context, event string, notification domain.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentNotification{event: event, notification: notification})
}

func defaultGate() domain.GateConfig {
	return domain.GateConfig{
		CooldownSeconds: 15,
		AllowedStatuses: []string{"pending"},
		Timezone:        "Asia/Almaty",
	}
}

func ptr[T any](v T) *T {
	return &v
}
