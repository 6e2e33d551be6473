package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

func TestClockInTwiceConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "manager-1")

	emp, err := svc.CreateEmployee(ctx, "Dana", 1500)
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if _, err := svc.ClockIn(ctx, emp.ID); err != nil {
		t.Fatalf("clock in: %v", err)
	}
	if _, err := svc.ClockIn(ctx, emp.ID); !errors.Is(err, store.ErrConflict) {
		t.Errorf("second clock in err = %v, want Conflict", err)
	}

	if _, err := svc.ClockOut(ctx, emp.ID); err != nil {
		t.Fatalf("clock out: %v", err)
	}
	if _, err := svc.ClockOut(ctx, emp.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second clock out err = %v, want NotFound", err)
	}
}

func TestClockInUnknownEmployee(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ClockIn(actorCtx("t1", "manager-1"), "emp-nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestPayrollSummaryAggregatesWages(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx("t1", "manager-1")

	dana, err := svc.CreateEmployee(ctx, "Dana", 1500) // 15.00/h
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	eli, err := svc.CreateEmployee(ctx, "Eli", 2000) // 20.00/h
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}

	day := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	seedShift := func(employeeID string, start time.Time, hours int) {
		t.Helper()
		entry := domain.TimeClockEntry{
			ID: "tc-" + employeeID + start.Format("15"), TenantID: "t1",
			EmployeeID: employeeID, ClockIn: start,
		}
		if _, err := repo.ClockIn(context.Background(), entry); err != nil {
			t.Fatalf("seed clock in: %v", err)
		}
		if _, err := repo.ClockOut(context.Background(), "t1", employeeID, start.Add(time.Duration(hours)*time.Hour)); err != nil {
			t.Fatalf("seed clock out: %v", err)
		}
	}
	seedShift(dana.ID, day, 8)
	seedShift(dana.ID, day.Add(24*time.Hour), 4)
	seedShift(eli.ID, day, 6)

	summary, err := svc.PayrollSummary(ctx, day.Add(-time.Hour), day.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary.Lines) != 2 {
		t.Fatalf("lines = %+v, want 2", summary.Lines)
	}

	byID := map[string]domain.PayrollLine{}
	for _, line := range summary.Lines {
		byID[line.EmployeeID] = line
	}
	if got := byID[dana.ID]; got.MinutesWorked != 720 || got.WageCents != 720*1500/60 {
		t.Errorf("dana = %+v, want 720 minutes, 18000 wage", got)
	}
	if got := byID[eli.ID]; got.MinutesWorked != 360 || got.WageCents != 360*2000/60 {
		t.Errorf("eli = %+v, want 360 minutes, 12000 wage", got)
	}
}
