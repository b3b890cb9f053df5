package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/lorrc/sla-engine/internal/core/domain"
	"github.com/lorrc/sla-engine/internal/core/ports"
)

// MockPolicyRepository is a mock implementation of ports.PolicyRepository
type MockPolicyRepository struct {
	mock.Mock
}

func NewMockPolicyRepository() *MockPolicyRepository {
	return &MockPolicyRepository{}
}

func (m *MockPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	args := m.Called(ctx, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaPolicy), args.Error(1)
}

func (m *MockPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SlaPolicy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaPolicy), args.Error(1)
}

func (m *MockPolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) (*domain.SlaPolicy, error) {
	args := m.Called(ctx, policy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaPolicy), args.Error(1)
}

func (m *MockPolicyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPolicyRepository) ListByTenantModule(ctx context.Context, tenant string, module domain.Module) ([]*domain.SlaPolicy, error) {
	args := m.Called(ctx, tenant, module)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SlaPolicy), args.Error(1)
}

// MockCalendarRepository is a mock implementation of ports.CalendarRepository
type MockCalendarRepository struct {
	mock.Mock
}

func NewMockCalendarRepository() *MockCalendarRepository {
	return &MockCalendarRepository{}
}

func (m *MockCalendarRepository) CreateWorkingTime(ctx context.Context, wt *domain.WorkingTime) (*domain.WorkingTime, error) {
	args := m.Called(ctx, wt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkingTime), args.Error(1)
}

func (m *MockCalendarRepository) GetWorkingTime(ctx context.Context, id uuid.UUID) (*domain.WorkingTime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkingTime), args.Error(1)
}

func (m *MockCalendarRepository) CreateHoliday(ctx context.Context, h *domain.Holiday) (*domain.Holiday, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holiday), args.Error(1)
}

func (m *MockCalendarRepository) ListHolidays(ctx context.Context, tenant string) ([]domain.Holiday, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Holiday), args.Error(1)
}

// MockJobRepository is a mock implementation of ports.JobRepository
type MockJobRepository struct {
	mock.Mock
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{}
}

func (m *MockJobRepository) CreateBatch(ctx context.Context, jobs []*domain.Job) (int, error) {
	args := m.Called(ctx, jobs)
	return args.Int(0), args.Error(1)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockJobRepository) DeleteByTags(ctx context.Context, tags []string) ([]*domain.Job, error) {
	args := m.Called(ctx, tags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepository) ListDueBefore(ctx context.Context, horizon time.Time) ([]*domain.Job, error) {
	args := m.Called(ctx, horizon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *MockJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.JobStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockJobRepository) Reschedule(ctx context.Context, id uuid.UUID, next time.Time, status domain.JobStatus) error {
	args := m.Called(ctx, id, next, status)
	return args.Error(0)
}

// MockJobScheduler is a mock implementation of ports.JobScheduler
type MockJobScheduler struct {
	mock.Mock
}

func NewMockJobScheduler() *MockJobScheduler {
	return &MockJobScheduler{}
}

func (m *MockJobScheduler) Schedule(ctx context.Context, specs []ports.ScheduleJobParams) (int, error) {
	args := m.Called(ctx, specs)
	return args.Int(0), args.Error(1)
}

func (m *MockJobScheduler) Cancel(ctx context.Context, tags []string) (int, error) {
	args := m.Called(ctx, tags)
	return args.Int(0), args.Error(1)
}

// MockSlaService is a mock implementation of ports.SlaService
type MockSlaService struct {
	mock.Mock
}

func NewMockSlaService() *MockSlaService {
	return &MockSlaService{}
}

func (m *MockSlaService) Calculate(ctx context.Context, snapshot *domain.TicketSnapshot) (*domain.SlaState, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaState), args.Error(1)
}

func (m *MockSlaService) Recheck(ctx context.Context, ticketID string, where string) (*domain.SlaState, error) {
	args := m.Called(ctx, ticketID, where)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SlaState), args.Error(1)
}

// MockTicketGateway is a mock implementation of ports.TicketGateway
type MockTicketGateway struct {
	mock.Mock
}

func NewMockTicketGateway() *MockTicketGateway {
	return &MockTicketGateway{}
}

func (m *MockTicketGateway) GetTicket(ctx context.Context, ticketID string) (*domain.TicketSnapshot, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketSnapshot), args.Error(1)
}

func (m *MockTicketGateway) UpdateFields(ctx context.Context, ticketID string, updates []domain.FieldUpdate) error {
	args := m.Called(ctx, ticketID, updates)
	return args.Error(0)
}

func (m *MockTicketGateway) SaveSla(ctx context.Context, ticketID string, state *domain.SlaState) error {
	args := m.Called(ctx, ticketID, state)
	return args.Error(0)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Notify(ctx context.Context, params ports.NotificationParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockGroupDirectory is a mock implementation of ports.GroupDirectory
type MockGroupDirectory struct {
	mock.Mock
}

func NewMockGroupDirectory() *MockGroupDirectory {
	return &MockGroupDirectory{}
}

func (m *MockGroupDirectory) ResolveGroup(ctx context.Context, tenant, groupID string) ([]string, error) {
	args := m.Called(ctx, tenant, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockJobExecutor is a mock implementation of ports.JobExecutor
type MockJobExecutor struct {
	mock.Mock
}

func NewMockJobExecutor() *MockJobExecutor {
	return &MockJobExecutor{}
}

func (m *MockJobExecutor) Execute(ctx context.Context, spec domain.HTTPRequestSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}
