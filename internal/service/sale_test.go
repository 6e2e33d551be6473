package service

import (
	"context"
	"errors"
	"testing"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
)

// draftCoffeeSale prices 2 x 1000c coffee with a 10% line discount and
// a 10% exclusive tax: subtotal 2000, discount 200, tax 180, total 1980.
func draftCoffeeSale(t *testing.T, svc *Service, ctx context.Context, registerID string, customerID string) domain.Sale {
	t.Helper()
	sale, err := svc.CreateDraftSale(ctx, domain.SaleCreateRequest{
		RegisterID: registerID,
		CustomerID: customerID,
		Lines: []domain.SaleLineRequest{{
			ProductID: "prod-coffee",
			Quantity:  2,
			Discount:  &domain.DiscountSpec{RateBps: 1000},
			TaxIDs:    []string{"tax-vat"},
		}},
	})
	if err != nil {
		t.Fatalf("create draft sale: %v", err)
	}
	return sale
}

func TestCreateDraftSaleFreezesAmounts(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	if sale.SubtotalCents != 2000 || sale.DiscountCents != 200 || sale.TaxCents != 180 || sale.TotalCents != 1980 {
		t.Fatalf("totals = %d/%d/%d/%d, want 2000/200/180/1980",
			sale.SubtotalCents, sale.DiscountCents, sale.TaxCents, sale.TotalCents)
	}
	if len(sale.Items) != 1 || sale.Items[0].LineTotalCents != 1980 {
		t.Fatalf("items = %+v, want one line totaling 1980", sale.Items)
	}

	// A later catalog price change must not move the stored sale.
	repo.SeedProduct(domain.CatalogProduct{
		TenantID: "t1", ID: "prod-coffee", Name: "Coffee", PriceCents: 9999,
		TaxIDs: []string{"tax-vat"}, Active: true,
	})
	got, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.TotalCents != 1980 || got.Items[0].UnitPriceCents != 1000 {
		t.Errorf("sale moved after catalog change: %+v", got)
	}
}

func TestFinalizeCashSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	reg, _ := svc.CreateRegister(ctx, domain.RegisterCreateRequest{Name: "Front"})
	session, err := svc.OpenRegisterSession(ctx, reg.ID, domain.SessionOpenRequest{OpeningCashCents: 5000})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if _, err := svc.SetLoyaltyProgram(ctx, true, 1.0); err != nil {
		t.Fatalf("set program: %v", err)
	}

	sale := draftCoffeeSale(t, svc, ctx, reg.ID, "cust-1")
	resp, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 2000}},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if resp.Sale.Status != domain.SaleStatusCompleted || resp.Sale.PaidCents != 2000 || resp.Sale.ChangeDueCents != 20 {
		t.Errorf("sale = %+v, want completed, paid 2000, change 20", resp.Sale)
	}
	if resp.Receipt.TotalCents != 1980 || len(resp.Receipt.Payments) != 1 {
		t.Errorf("receipt = %+v, want total 1980 with one payment", resp.Receipt)
	}
	if !resp.CashAdjusted {
		t.Error("drawer was not adjusted")
	}
	// 1980 total at 1 point per major unit.
	if resp.PointsEarned != 19 {
		t.Errorf("points earned = %d, want 19", resp.PointsEarned)
	}
	if resp.SideEffectErr != "" {
		t.Errorf("unexpected side effect error: %s", resp.SideEffectErr)
	}

	// Drawer gained tendered cash minus change.
	current, err := svc.GetOpenSession(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get open session: %v", err)
	}
	if current.ExpectedCashCents != 5000+1980 {
		t.Errorf("expected cash = %d, want 6980", current.ExpectedCashCents)
	}
	if current.ID != session.ID {
		t.Errorf("session changed: %s vs %s", current.ID, session.ID)
	}

	// Finalize is not repeatable.
	_, err = svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 2000}},
	})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("second finalize err = %v, want InvalidState", err)
	}
}

func TestFinalizeRejectsUnderpayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	_, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCard, AmountCents: 1000}},
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}

	// Nothing persisted: the sale is still a draft with no receipt.
	got, err := svc.GetSale(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get sale: %v", err)
	}
	if got.Status != domain.SaleStatusDraft || got.PaidCents != 0 {
		t.Errorf("sale = %+v, want untouched draft", got)
	}
}

func TestFinalizeSplitTender(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	reg, _ := svc.CreateRegister(ctx, domain.RegisterCreateRequest{Name: "Front"})
	if _, err := svc.OpenRegisterSession(ctx, reg.ID, domain.SessionOpenRequest{OpeningCashCents: 1000}); err != nil {
		t.Fatalf("open session: %v", err)
	}

	sale := draftCoffeeSale(t, svc, ctx, reg.ID, "")
	resp, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{
			{Method: domain.PaymentMethodCard, AmountCents: 1000},
			{Method: domain.PaymentMethodCash, AmountCents: 1000},
		},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if resp.Sale.ChangeDueCents != 20 {
		t.Errorf("change = %d, want 20", resp.Sale.ChangeDueCents)
	}

	// Only the cash component net of change reaches the drawer.
	session, err := svc.GetOpenSession(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get open session: %v", err)
	}
	if session.ExpectedCashCents != 1000+980 {
		t.Errorf("expected cash = %d, want 1980", session.ExpectedCashCents)
	}
}

func TestRefundTelescopesToLineTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	itemID := sale.Items[0].ID

	first, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: itemID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("first refund: %v", err)
	}
	second, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: itemID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if got := first.Refund.AmountCents + second.Refund.AmountCents; got != 1980 {
		t.Errorf("refunds sum to %d, want exactly the line total 1980", got)
	}
	if got := first.RefundedQuantities[itemID]; got != 1 {
		t.Errorf("refunded quantity after first = %d, want 1", got)
	}
	if got := second.RefundedQuantities[itemID]; got != 2 {
		t.Errorf("refunded quantity after second = %d, want 2", got)
	}

	// Quantity exhausted: any further refund is rejected and nothing
	// is persisted for it.
	_, err = svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: itemID, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Errorf("over-refund err = %v, want InvalidArgument", err)
	}
}

func TestRefundRejectsOverQuantityUpfront(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 3}},
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestRefundOfDraftRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	_, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 1}},
	})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("err = %v, want InvalidState", err)
	}
}

func TestRefundReversesDrawerAndLoyalty(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	reg, _ := svc.CreateRegister(ctx, domain.RegisterCreateRequest{Name: "Front"})
	if _, err := svc.OpenRegisterSession(ctx, reg.ID, domain.SessionOpenRequest{OpeningCashCents: 5000}); err != nil {
		t.Fatalf("open session: %v", err)
	}
	if _, err := svc.SetLoyaltyProgram(ctx, true, 1.0); err != nil {
		t.Fatalf("set program: %v", err)
	}

	sale := draftCoffeeSale(t, svc, ctx, reg.ID, "cust-1")
	fin, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	resp, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if resp.Refund.AmountCents != 990 {
		t.Errorf("refund amount = %d, want 990", resp.Refund.AmountCents)
	}
	if !resp.CashAdjusted {
		t.Error("drawer was not reversed")
	}
	// 990 refunded at 1 point per major unit.
	if resp.PointsReversed != 9 {
		t.Errorf("points reversed = %d, want 9", resp.PointsReversed)
	}

	session, err := svc.GetOpenSession(ctx, reg.ID)
	if err != nil {
		t.Fatalf("get open session: %v", err)
	}
	if session.ExpectedCashCents != 5000+1980-990 {
		t.Errorf("expected cash = %d, want 5990", session.ExpectedCashCents)
	}

	acct, err := svc.GetLoyaltyAccount(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.PointsBalance != fin.PointsEarned-9 {
		t.Errorf("balance = %d, want %d", acct.PointsBalance, fin.PointsEarned-9)
	}
}

func TestRefundRejectsUnknownPaymentMethod(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	if _, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	}); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	_, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items:         []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 1}},
		PaymentMethod: "iou",
	})
	if !errors.Is(err, store.ErrInvalidArgument) {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
	// Nothing persisted for the rejected refund.
	full, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if full.Refund.AmountCents != 1980 {
		t.Errorf("refund amount = %d, want the untouched line total 1980", full.Refund.AmountCents)
	}
}

func TestRefundIgnoresProgramActivatedAfterSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	// No program at finalize time: the sale earns nothing.
	sale := draftCoffeeSale(t, svc, ctx, "", "cust-1")
	fin, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if fin.PointsEarned != 0 {
		t.Fatalf("points earned = %d, want 0 without a program", fin.PointsEarned)
	}

	// Activating the program afterwards must not conjure a reversal.
	if _, err := svc.SetLoyaltyProgram(ctx, true, 1.0); err != nil {
		t.Fatalf("set program: %v", err)
	}
	resp, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if resp.PointsReversed != 0 {
		t.Errorf("points reversed = %d, want 0 (sale earned none)", resp.PointsReversed)
	}
	if acct, err := svc.GetLoyaltyAccount(ctx, "cust-1"); err == nil && acct.PointsBalance < 0 {
		t.Errorf("balance = %d, must never go negative", acct.PointsBalance)
	}
}

func TestRefundReversalCappedAtPointsEarned(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	if _, err := svc.SetLoyaltyProgram(ctx, true, 1.0); err != nil {
		t.Fatalf("set program: %v", err)
	}
	sale := draftCoffeeSale(t, svc, ctx, "", "cust-1")
	fin, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if fin.PointsEarned != 19 {
		t.Fatalf("points earned = %d, want 19", fin.PointsEarned)
	}

	// A rate hike between sale and refund does not inflate the
	// reversal: it stays bounded by what the sale actually earned.
	if _, err := svc.SetLoyaltyProgram(ctx, true, 10.0); err != nil {
		t.Fatalf("set program: %v", err)
	}
	resp, err := svc.RefundSale(ctx, sale.ID, domain.RefundRequest{
		Items: []domain.RefundLineRequest{{SaleItemID: sale.Items[0].ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if resp.PointsReversed != 19 {
		t.Errorf("points reversed = %d, want 19", resp.PointsReversed)
	}
	acct, err := svc.GetLoyaltyAccount(ctx, "cust-1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if acct.PointsBalance != 0 {
		t.Errorf("balance = %d, want 0 after full reversal", acct.PointsBalance)
	}
}

func TestGetSaleReceipt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	sale := draftCoffeeSale(t, svc, ctx, "", "")
	if _, err := svc.GetSaleReceipt(ctx, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("draft receipt err = %v, want NotFound", err)
	}

	fin, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 2000}},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	receipt, err := svc.GetSaleReceipt(ctx, sale.ID)
	if err != nil {
		t.Fatalf("get receipt: %v", err)
	}
	if receipt.ID != fin.Receipt.ID || receipt.TotalCents != 1980 {
		t.Errorf("receipt = %+v, want the finalize receipt totaling 1980", receipt)
	}
}

func TestFinalizeAfterSessionCloseSkipsDrawerAndReconciliationFlagsIt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := actorCtx("t1", "cashier-1")

	reg, _ := svc.CreateRegister(ctx, domain.RegisterCreateRequest{Name: "Front"})
	session, err := svc.OpenRegisterSession(ctx, reg.ID, domain.SessionOpenRequest{OpeningCashCents: 5000})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	sale := draftCoffeeSale(t, svc, ctx, reg.ID, "")
	if _, err := svc.CloseRegisterSession(ctx, reg.ID, domain.SessionCloseRequest{ClosingCashCents: 5000}); err != nil {
		t.Fatalf("close session: %v", err)
	}

	// The sale still completes; the drawer effect is silently skipped
	// because the session closed in between.
	resp, err := svc.FinalizeSale(ctx, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 1980}},
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if resp.CashAdjusted {
		t.Error("drawer adjusted on a closed session")
	}

	rec, err := svc.SessionReconciliation(ctx, session.ID)
	if err != nil {
		t.Fatalf("reconciliation: %v", err)
	}
	if rec.CashTenderedCents != 1980 {
		t.Errorf("tendered = %d, want 1980", rec.CashTenderedCents)
	}
	if rec.DriftCents != -1980 {
		t.Errorf("drift = %d, want -1980 (the skipped adjustment)", rec.DriftCents)
	}
}

func TestCrossTenantSaleHidden(t *testing.T) {
	svc, _ := newTestService(t)
	sale := draftCoffeeSale(t, svc, actorCtx("t1", "cashier-1"), "", "")

	other := actorCtx("t2", "user-9")
	if _, err := svc.GetSale(other, sale.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get err = %v, want NotFound", err)
	}
	_, err := svc.FinalizeSale(other, sale.ID, domain.FinalizeRequest{
		Payments: []domain.PaymentInput{{Method: domain.PaymentMethodCash, AmountCents: 5000}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("finalize err = %v, want NotFound", err)
	}
}
