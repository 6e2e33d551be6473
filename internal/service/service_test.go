package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"tillpoint/backend/internal/audit"
	"tillpoint/backend/internal/catalog"
	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	repo.SeedProduct(domain.CatalogProduct{
		TenantID: "t1", ID: "prod-coffee", Name: "Coffee", PriceCents: 1000,
		TaxIDs: []string{"tax-vat"}, Active: true,
	})
	repo.SeedProduct(domain.CatalogProduct{
		TenantID: "t1", ID: "prod-mug", Name: "Mug", PriceCents: 1500, Active: true,
	})
	repo.SeedTax(domain.TaxRate{TenantID: "t1", ID: "tax-vat", Name: "VAT", RateBps: 1000})

	log := zap.NewNop()
	cat := catalog.New(repo, nil, time.Minute, log)
	return New(repo, cat, audit.NopSink{}, log), repo
}

func actorCtx(tenantID string, userID string) context.Context {
	return WithActor(context.Background(), domain.Actor{TenantID: tenantID, UserID: userID, Role: "manager"})
}

func TestOperationsRequireActor(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ListRegisters(context.Background()); err == nil {
		t.Error("expected error without authenticated actor")
	}
}

func TestAuditTrailRecorded(t *testing.T) {
	repo := memory.New()
	log := zap.NewNop()
	worker := audit.NewWorker(repo, log, 16)
	svc := New(repo, catalog.New(repo, nil, time.Minute, log), worker, log)

	ctx := actorCtx("t1", "user-1")
	if _, err := svc.CreateRegister(ctx, domain.RegisterCreateRequest{Name: "Front"}); err != nil {
		t.Fatalf("create register: %v", err)
	}
	worker.Close()

	logs, err := svc.ListAuditLogs(ctx, time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "register_create" {
		t.Errorf("audit logs = %+v, want one register_create entry", logs)
	}
	if logs[0].ActorID != "user-1" || logs[0].TenantID != "t1" {
		t.Errorf("audit actor = %s/%s, want user-1/t1", logs[0].ActorID, logs[0].TenantID)
	}
}
