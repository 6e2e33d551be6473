package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

func (s *Service) CreateEmployee(ctx context.Context, name string, hourlyRateCents int64) (domain.EmployeeProfile, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.EmployeeProfile{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.EmployeeProfile{}, fmt.Errorf("employee name required: %w", store.ErrInvalidArgument)
	}
	if hourlyRateCents < 0 {
		return domain.EmployeeProfile{}, fmt.Errorf("hourly rate cannot be negative: %w", store.ErrInvalidArgument)
	}

	emp := domain.EmployeeProfile{
		ID:              xid.New("emp"),
		TenantID:        actor.TenantID,
		Name:            name,
		HourlyRateCents: hourlyRateCents,
		Active:          true,
		CreatedAt:       time.Now().UTC(),
	}
	saved, err := s.repo.CreateEmployee(ctx, emp)
	if err != nil {
		return domain.EmployeeProfile{}, err
	}
	s.logAudit(ctx, "employee_create", "employee", saved.ID, saved.Name)
	return *saved, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.EmployeeProfile, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEmployees(ctx, actor.TenantID)
}

func (s *Service) ClockIn(ctx context.Context, employeeID string) (domain.TimeClockEntry, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.TimeClockEntry{}, err
	}
	entry := domain.TimeClockEntry{
		ID:         xid.New("tc"),
		TenantID:   actor.TenantID,
		EmployeeID: employeeID,
		ClockIn:    time.Now().UTC(),
	}
	saved, err := s.repo.ClockIn(ctx, entry)
	if err != nil {
		return domain.TimeClockEntry{}, err
	}
	s.logAudit(ctx, "clock_in", "time_clock_entry", saved.ID, employeeID)
	return *saved, nil
}

func (s *Service) ClockOut(ctx context.Context, employeeID string) (domain.TimeClockEntry, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.TimeClockEntry{}, err
	}
	saved, err := s.repo.ClockOut(ctx, actor.TenantID, employeeID, time.Now().UTC())
	if err != nil {
		return domain.TimeClockEntry{}, err
	}
	s.logAudit(ctx, "clock_out", "time_clock_entry", saved.ID, employeeID)
	return *saved, nil
}

// PayrollSummary aggregates worked minutes and wages per employee over
// a range. Entries still open count up to now.
func (s *Service) PayrollSummary(ctx context.Context, from time.Time, to time.Time) (domain.PayrollSummary, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.PayrollSummary{}, err
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	employees, err := s.repo.ListEmployees(ctx, actor.TenantID)
	if err != nil {
		return domain.PayrollSummary{}, err
	}
	entries, err := s.repo.ListTimeClockEntries(ctx, actor.TenantID, from, to)
	if err != nil {
		return domain.PayrollSummary{}, err
	}

	minutes := map[string]int64{}
	for _, entry := range entries {
		end := to
		if entry.ClockOut != nil {
			end = *entry.ClockOut
		}
		if end.After(to) {
			end = to
		}
		if end.After(entry.ClockIn) {
			minutes[entry.EmployeeID] += int64(end.Sub(entry.ClockIn).Minutes())
		}
	}

	summary := domain.PayrollSummary{
		TenantID: actor.TenantID,
		From:     from.Format(time.RFC3339),
		To:       to.Format(time.RFC3339),
	}
	for _, emp := range employees {
		worked := minutes[emp.ID]
		if worked == 0 {
			continue
		}
		summary.Lines = append(summary.Lines, domain.PayrollLine{
			EmployeeID:    emp.ID,
			EmployeeName:  emp.Name,
			MinutesWorked: worked,
			WageCents:     worked * emp.HourlyRateCents / 60,
		})
	}
	return summary, nil
}
