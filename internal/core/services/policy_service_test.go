package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/sla-engine/internal/core/domain"
	apperrors "github.com/lorrc/sla-engine/internal/core/errors"
	"github.com/lorrc/sla-engine/internal/core/mocks"
	"github.com/lorrc/sla-engine/internal/core/ports"
	"github.com/lorrc/sla-engine/internal/core/services"
)

func newPolicyService(policies *mocks.MockPolicyRepository, calendars *mocks.MockCalendarRepository) *services.PolicyAdminService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return services.NewPolicyAdminService(policies, calendars, logger)
}

func validPolicy(workingTimeID uuid.UUID) *domain.SlaPolicy {
	return &domain.SlaPolicy{
		Tenant:        "acme",
		Module:        domain.ModuleIncident,
		Order:         1,
		WorkingTimeID: workingTimeID,
		MatchingRule:  matchAnyPriority("high"),
		Response: &domain.Assurance{
			DetermineBy: domain.DetermineByStatus,
			TimeLimit:   30,
		},
		Resolving: &domain.Assurance{
			TimeLimit: 240,
			Levels: []domain.LevelEscalation{
				{Type: domain.BeforeOverdue, AmountTime: 30},
				{Type: domain.AfterOverdue, AmountTime: 60},
			},
		},
	}
}

func TestPolicyAdminService_CreatePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		cal := domain.NewStandard8x5()
		policy := validPolicy(cal.ID)

		calendars.On("GetWorkingTime", ctx, cal.ID).Return(&cal, nil)
		policies.On("Create", ctx, policy).Return(policy, nil)

		created, err := svc.CreatePolicy(ctx, policy)

		require.NoError(t, err)
		assert.Equal(t, policy, created)
		policies.AssertExpectations(t)
	})

	t.Run("assigns ids when the client sends none", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		cal := domain.NewStandard8x5()
		calendars.On("GetWorkingTime", ctx, cal.ID).Return(&cal, nil)

		var seen []uuid.UUID
		policies.On("Create", ctx, mock.AnythingOfType("*domain.SlaPolicy")).
			Return(validPolicy(cal.ID), nil).Twice().
			Run(func(args mock.Arguments) {
				seen = append(seen, args.Get(1).(*domain.SlaPolicy).ID)
			})

		first := validPolicy(cal.ID)
		second := validPolicy(cal.ID)
		second.Order = 2

		_, err := svc.CreatePolicy(ctx, first)
		require.NoError(t, err)
		_, err = svc.CreatePolicy(ctx, second)
		require.NoError(t, err)

		require.Len(t, seen, 2)
		assert.NotEqual(t, uuid.Nil, seen[0])
		assert.NotEqual(t, uuid.Nil, seen[1])
		assert.NotEqual(t, seen[0], seen[1])
	})

	t.Run("rejects a policy violating level ordering", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		policy := validPolicy(uuid.New())
		policy.Resolving.Levels = []domain.LevelEscalation{
			{Type: domain.AfterOverdue, AmountTime: 60},
			{Type: domain.AfterOverdue, AmountTime: 30},
		}

		_, err := svc.CreatePolicy(ctx, policy)

		assert.ErrorIs(t, err, apperrors.ErrInvalidPolicy)
		policies.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects a policy whose calendar does not exist", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		policy := validPolicy(uuid.New())
		calendars.On("GetWorkingTime", ctx, policy.WorkingTimeID).
			Return(nil, apperrors.ErrWorkingTimeNotFound)

		_, err := svc.CreatePolicy(ctx, policy)

		assert.ErrorIs(t, err, apperrors.ErrWorkingTimeNotFound)
		policies.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("propagates duplicate order conflicts", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		cal := domain.NewStandard8x5()
		policy := validPolicy(cal.ID)

		calendars.On("GetWorkingTime", ctx, cal.ID).Return(&cal, nil)
		policies.On("Create", ctx, policy).Return(nil, apperrors.ErrDuplicatePolicyOrder)

		_, err := svc.CreatePolicy(ctx, policy)

		assert.ErrorIs(t, err, apperrors.ErrDuplicatePolicyOrder)
	})
}

func TestPolicyAdminService_CreateWorkingTime(t *testing.T) {
	ctx := context.Background()

	t.Run("uses the template when no days are given", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		calendars.On("CreateWorkingTime", ctx, mock.MatchedBy(func(wt *domain.WorkingTime) bool {
			return wt.Type == domain.Standard24x5 &&
				wt.Days[time.Monday].Working && !wt.Days[time.Sunday].Working
		})).Return(&domain.WorkingTime{Type: domain.Standard24x5}, nil)

		_, err := svc.CreateWorkingTime(ctx, ports.CreateWorkingTimeParams{Type: domain.Standard24x5})

		require.NoError(t, err)
		calendars.AssertExpectations(t)
	})

	t.Run("assigns an id to a custom calendar", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		var days [7]domain.WorkingDay
		days[time.Tuesday] = domain.WorkingDay{
			Working: true,
			Hours: &domain.WorkingHours{
				Start: domain.ClockTime{Hour: 9},
				End:   domain.ClockTime{Hour: 17},
			},
		}

		calendars.On("CreateWorkingTime", ctx, mock.MatchedBy(func(wt *domain.WorkingTime) bool {
			return wt.ID != uuid.Nil
		})).Return(&domain.WorkingTime{Type: domain.Standard8x5}, nil)

		_, err := svc.CreateWorkingTime(ctx, ports.CreateWorkingTimeParams{
			Type: domain.Standard8x5,
			Days: &days,
		})

		require.NoError(t, err)
		calendars.AssertExpectations(t)
	})

	t.Run("rejects an unknown calendar type", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		_, err := svc.CreateWorkingTime(ctx, ports.CreateWorkingTimeParams{Type: "STANDARD_9x9"})

		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
		calendars.AssertNotCalled(t, "CreateWorkingTime", mock.Anything, mock.Anything)
	})

	t.Run("rejects custom days with an inverted window", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		var days [7]domain.WorkingDay
		days[time.Monday] = domain.WorkingDay{
			Working: true,
			Hours: &domain.WorkingHours{
				Start: domain.ClockTime{Hour: 17},
				End:   domain.ClockTime{Hour: 9},
			},
		}

		_, err := svc.CreateWorkingTime(ctx, ports.CreateWorkingTimeParams{
			Type: domain.Standard8x5,
			Days: &days,
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
	})
}

func TestPolicyAdminService_CreateHoliday(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		h := &domain.Holiday{
			Tenant: "acme",
			Name:   "New Year",
			Start:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2026, 1, 1, 23, 59, 59, 0, time.UTC),
		}
		calendars.On("CreateHoliday", ctx, mock.MatchedBy(func(got *domain.Holiday) bool {
			return got.ID != uuid.Nil && got.Name == "New Year"
		})).Return(h, nil)

		created, err := svc.CreateHoliday(ctx, h)

		require.NoError(t, err)
		assert.Equal(t, h, created)
	})

	t.Run("rejects an inverted interval", func(t *testing.T) {
		policies := mocks.NewMockPolicyRepository()
		calendars := mocks.NewMockCalendarRepository()
		svc := newPolicyService(policies, calendars)

		h := &domain.Holiday{
			Tenant: "acme",
			Start:  time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			End:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		}

		_, err := svc.CreateHoliday(ctx, h)

		assert.ErrorIs(t, err, apperrors.ErrInvalidCalendar)
		calendars.AssertNotCalled(t, "CreateHoliday", mock.Anything, mock.Anything)
	})
}
