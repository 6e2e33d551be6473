package service

import (
	"errors"
	"sync"
	"testing"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

func TestEarnPointsFloorsFractions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "user-1")
	if _, err := svc.SetLoyaltyProgram(ctx, true, 0.5); err != nil {
		t.Fatalf("set program: %v", err)
	}

	// 2550c spent at 0.5 points per unit -> 12.75 -> 12.
	resp, err := svc.EarnPoints(ctx, domain.LoyaltyEarnRequest{CustomerID: "cust-1", AmountSpentCents: 2550})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if resp.PointsDelta != 12 || resp.PointsBalance != 12 {
		t.Errorf("resp = %+v, want delta 12, balance 12", resp)
	}
}

func TestEarnWithoutProgramIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "user-1")

	resp, err := svc.EarnPoints(ctx, domain.LoyaltyEarnRequest{CustomerID: "cust-1", AmountSpentCents: 5000})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if resp.PointsDelta != 0 {
		t.Errorf("delta = %d, want 0 without a program", resp.PointsDelta)
	}
	if entries, _ := svc.ListLoyaltyEntries(ctx, "cust-1", 0); len(entries) != 0 {
		t.Errorf("ledger = %+v, want empty", entries)
	}
}

func TestEarnInactiveProgramIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "user-1")
	if _, err := svc.SetLoyaltyProgram(ctx, false, 1.0); err != nil {
		t.Fatalf("set program: %v", err)
	}
	resp, err := svc.EarnPoints(ctx, domain.LoyaltyEarnRequest{CustomerID: "cust-1", AmountSpentCents: 5000})
	if err != nil {
		t.Fatalf("earn: %v", err)
	}
	if resp.PointsDelta != 0 {
		t.Errorf("delta = %d, want 0 with inactive program", resp.PointsDelta)
	}
}

func TestRedeemInsufficientBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "user-1")
	if _, err := svc.AdjustPoints(ctx, domain.LoyaltyAdjustRequest{CustomerID: "cust-1", PointsDelta: 30, Reason: "signup bonus"}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	_, err := svc.RedeemPoints(ctx, domain.LoyaltyRedeemRequest{CustomerID: "cust-1", Points: 50})
	if !errors.Is(err, store.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want InsufficientBalance", err)
	}

	// The failed redemption left no trace.
	acct, err := svc.GetLoyaltyAccount(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.PointsBalance != 30 {
		t.Errorf("balance = %d, want 30", acct.PointsBalance)
	}
	if entries, _ := svc.ListLoyaltyEntries(ctx, "cust-1", 0); len(entries) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(entries))
	}
}

func TestConcurrentRedeemsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "user-1")
	if _, err := svc.AdjustPoints(ctx, domain.LoyaltyAdjustRequest{CustomerID: "cust-1", PointsDelta: 100, Reason: "seed"}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	const workers = 5
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RedeemPoints(ctx, domain.LoyaltyRedeemRequest{CustomerID: "cust-1", Points: 60})
		}(i)
	}
	wg.Wait()

	var succeeded, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientBalance):
			insufficient++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != workers-1 {
		t.Errorf("succeeded=%d insufficient=%d, want 1 and %d", succeeded, insufficient, workers-1)
	}

	acct, err := svc.GetLoyaltyAccount(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.PointsBalance != 40 {
		t.Errorf("balance = %d, want 40", acct.PointsBalance)
	}
}

func TestBalanceEqualsLedgerSum(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "user-1")
	if _, err := svc.SetLoyaltyProgram(ctx, true, 2.0); err != nil {
		t.Fatalf("set program: %v", err)
	}

	if _, err := svc.EarnPoints(ctx, domain.LoyaltyEarnRequest{CustomerID: "cust-1", AmountSpentCents: 3000}); err != nil {
		t.Fatalf("earn: %v", err)
	}
	if _, err := svc.AdjustPoints(ctx, domain.LoyaltyAdjustRequest{CustomerID: "cust-1", PointsDelta: 15, Reason: "goodwill"}); err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if _, err := svc.RedeemPoints(ctx, domain.LoyaltyRedeemRequest{CustomerID: "cust-1", Points: 20}); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := svc.AdjustPoints(ctx, domain.LoyaltyAdjustRequest{CustomerID: "cust-1", PointsDelta: -5, Reason: "correction"}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	entries, err := svc.ListLoyaltyEntries(ctx, "cust-1", 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	var sum int64
	for _, e := range entries {
		sum += e.PointsDelta
	}
	acct, err := svc.GetLoyaltyAccount(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.PointsBalance != sum {
		t.Errorf("balance %d != ledger sum %d", acct.PointsBalance, sum)
	}
	if acct.PointsBalance != 50 {
		t.Errorf("balance = %d, want 50", acct.PointsBalance)
	}
}

func TestLoyaltyTenantsIsolated(t *testing.T) {
	svc, _ := newTestService(t)
	ctx1 := actorCtx("t1", "user-1")
	if _, err := svc.AdjustPoints(ctx1, domain.LoyaltyAdjustRequest{CustomerID: "cust-1", PointsDelta: 80, Reason: "seed"}); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	// Same customer ID under another tenant is a different account.
	ctx2 := actorCtx("t2", "user-9")
	if _, err := svc.GetLoyaltyAccount(ctx2, "cust-1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want NotFound", err)
	}
	if _, err := svc.RedeemPoints(ctx2, domain.LoyaltyRedeemRequest{CustomerID: "cust-1", Points: 10}); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("err = %v, want InsufficientBalance", err)
	}
}
