package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/pricing"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

// CreateDraftSale prices the requested lines through the catalog and
// freezes the resulting unit and line amounts onto the sale. Catalog
// price changes after this point do not move the sale's totals.
func (s *Service) CreateDraftSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Sale{}, err
	}

	lines := make([]pricing.LineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, pricing.LineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Discount:  line.Discount,
			TaxIDs:    line.TaxIDs,
		})
	}
	breakdown, err := pricing.Calculate(ctx, s.catalog, actor.TenantID, pricing.Input{
		Lines:         lines,
		SaleDiscount:  req.SaleDiscount,
		ShippingCents: req.ShippingCents,
	})
	if err != nil {
		return domain.Sale{}, err
	}

	sessionID := ""
	if req.RegisterID != "" {
		// A sale made at a register joins its open drawer when there
		// is one; a sale without a drawer still completes.
		session, err := s.repo.GetOpenSession(ctx, actor.TenantID, req.RegisterID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.Sale{}, err
		}
		if session != nil {
			sessionID = session.ID
		}
	}

	now := time.Now().UTC()
	sale := domain.Sale{
		ID:                xid.New("sale"),
		TenantID:          actor.TenantID,
		Status:            domain.SaleStatusDraft,
		LocationID:        req.LocationID,
		RegisterID:        req.RegisterID,
		SessionID:         sessionID,
		CashierID:         actor.UserID,
		CustomerID:        req.CustomerID,
		SubtotalCents:     breakdown.SubtotalCents,
		DiscountCents:     breakdown.DiscountCents,
		TaxCents:          breakdown.TaxCents,
		ShippingCents:     breakdown.ShippingCents,
		TotalCents:        breakdown.TotalCents,
		FulfillmentStatus: domain.FulfillmentStatusPending,
		CreatedAt:         now,
	}
	for _, line := range breakdown.Lines {
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:                xid.New("si"),
			TenantID:          actor.TenantID,
			SaleID:            sale.ID,
			ProductID:         line.ProductID,
			ProductName:       line.ProductName,
			Quantity:          line.Quantity,
			UnitPriceCents:    line.UnitPriceCents,
			UnitDiscountCents: line.DiscountCents / int64(line.Quantity),
			LineSubtotalCents: line.SubtotalCents,
			LineDiscountCents: line.DiscountCents,
			LineTaxCents:      line.TaxCents,
			LineTotalCents:    line.TotalCents,
		})
	}

	saved, err := s.repo.CreateDraftSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}
	s.logAudit(ctx, "sale_create", "sale", saved.ID, fmt.Sprintf("total=%d,lines=%d", saved.TotalCents, len(saved.Items)))
	return *saved, nil
}

func (s *Service) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Sale{}, err
	}
	sale, err := s.repo.GetSale(ctx, actor.TenantID, saleID)
	if err != nil {
		return domain.Sale{}, err
	}
	return *sale, nil
}

// GetSaleReceipt returns the receipt of a finalized sale; a draft has
// none and reads as NotFound.
func (s *Service) GetSaleReceipt(ctx context.Context, saleID string) (domain.Receipt, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Receipt{}, err
	}
	receipt, err := s.repo.GetReceipt(ctx, actor.TenantID, saleID)
	if err != nil {
		return domain.Receipt{}, err
	}
	return *receipt, nil
}

// FinalizeSale commits the payment transaction, then applies the
// drawer and loyalty side effects best-effort: the sale stays
// COMPLETED even when those fail, and the response says what happened.
func (s *Service) FinalizeSale(ctx context.Context, saleID string, req domain.FinalizeRequest) (domain.FinalizeResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.FinalizeResponse{}, err
	}
	if len(req.Payments) == 0 {
		return domain.FinalizeResponse{}, fmt.Errorf("at least one payment required: %w", store.ErrInvalidArgument)
	}
	for _, p := range req.Payments {
		if p.AmountCents <= 0 {
			return domain.FinalizeResponse{}, fmt.Errorf("payment amount must be positive: %w", store.ErrInvalidArgument)
		}
		switch p.Method {
		case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodOther:
		default:
			return domain.FinalizeResponse{}, fmt.Errorf("unknown payment method %q: %w", p.Method, store.ErrInvalidArgument)
		}
	}

	now := time.Now().UTC()
	sale, receipt, err := s.repo.FinalizeSale(ctx, actor.TenantID, saleID, req.Payments, actor.UserID, now)
	if err != nil {
		return domain.FinalizeResponse{}, err
	}
	s.logAudit(ctx, "sale_finalize", "sale", sale.ID,
		fmt.Sprintf("total=%d,paid=%d,change=%d", sale.TotalCents, sale.PaidCents, sale.ChangeDueCents))

	resp := domain.FinalizeResponse{Sale: *sale, Receipt: *receipt}

	var cashPaid int64
	for _, p := range req.Payments {
		if p.Method == domain.PaymentMethodCash {
			cashPaid += p.AmountCents
		}
	}
	if cashPaid > 0 && sale.SessionID != "" {
		delta := cashPaid - sale.ChangeDueCents
		applied, err := s.repo.AdjustSessionCash(ctx, actor.TenantID, sale.SessionID, delta)
		if err != nil {
			s.log.Warn("drawer adjustment failed after finalize",
				zap.String("sale_id", sale.ID), zap.String("session_id", sale.SessionID), zap.Error(err))
			resp.SideEffectErr = appendSideEffectErr(resp.SideEffectErr, fmt.Sprintf("drawer adjustment: %v", err))
		}
		resp.CashAdjusted = applied
	}

	if sale.CustomerID != "" {
		points, err := s.earnForSale(ctx, actor, sale)
		if err != nil {
			s.log.Warn("loyalty accrual failed after finalize",
				zap.String("sale_id", sale.ID), zap.String("customer_id", sale.CustomerID), zap.Error(err))
			resp.SideEffectErr = appendSideEffectErr(resp.SideEffectErr, fmt.Sprintf("loyalty accrual: %v", err))
		} else {
			resp.PointsEarned = points
		}
	}
	return resp, nil
}

func (s *Service) earnForSale(ctx context.Context, actor domain.Actor, sale *domain.Sale) (int64, error) {
	program, err := s.repo.GetLoyaltyProgram(ctx, actor.TenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	points := earnablePoints(program, sale.TotalCents)
	if points <= 0 {
		return 0, nil
	}
	_, err = s.repo.IncrementLoyaltyPoints(ctx, domain.LoyaltyEntry{
		ID:          xid.New("loy"),
		TenantID:    actor.TenantID,
		CustomerID:  sale.CustomerID,
		PointsDelta: points,
		Reason:      domain.LoyaltyReasonEarn,
		SaleID:      sale.ID,
		RecordedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// RefundSale returns quantities from a completed sale. The refund
// record commits first; drawer and loyalty reversals follow
// best-effort like finalize's side effects.
func (s *Service) RefundSale(ctx context.Context, saleID string, req domain.RefundRequest) (domain.RefundResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.RefundResponse{}, err
	}

	sale, err := s.repo.GetSale(ctx, actor.TenantID, saleID)
	if err != nil {
		return domain.RefundResponse{}, err
	}

	method := req.PaymentMethod
	switch method {
	case "":
		method, err = s.dominantPaymentMethod(ctx, actor.TenantID, saleID)
		if err != nil {
			return domain.RefundResponse{}, err
		}
	case domain.PaymentMethodCash, domain.PaymentMethodCard, domain.PaymentMethodOther:
	default:
		return domain.RefundResponse{}, fmt.Errorf("unknown payment method %q: %w", method, store.ErrInvalidArgument)
	}

	refund, err := s.repo.CreateRefund(ctx, actor.TenantID, saleID, req.Items, req.Reason, method, actor.UserID)
	if err != nil {
		return domain.RefundResponse{}, err
	}
	s.logAudit(ctx, "sale_refund", "sale", saleID,
		fmt.Sprintf("refund=%s,amount=%d,method=%s", refund.ID, refund.AmountCents, method))

	resp := domain.RefundResponse{Refund: *refund}

	if refunded, err := s.repo.RefundedQuantities(ctx, actor.TenantID, saleID); err != nil {
		s.log.Warn("refunded-quantity read failed after refund",
			zap.String("refund_id", refund.ID), zap.Error(err))
	} else {
		resp.RefundedQuantities = refunded
	}

	if method == domain.PaymentMethodCash && sale.SessionID != "" {
		applied, err := s.repo.AdjustSessionCash(ctx, actor.TenantID, sale.SessionID, -refund.AmountCents)
		if err != nil {
			s.log.Warn("drawer reversal failed after refund",
				zap.String("refund_id", refund.ID), zap.String("session_id", sale.SessionID), zap.Error(err))
			resp.SideEffectErr = appendSideEffectErr(resp.SideEffectErr, fmt.Sprintf("drawer reversal: %v", err))
		}
		resp.CashAdjusted = applied
	}

	if sale.CustomerID != "" {
		reversed, err := s.reverseEarn(ctx, actor, sale, refund)
		if err != nil {
			s.log.Warn("loyalty reversal failed after refund",
				zap.String("refund_id", refund.ID), zap.String("customer_id", sale.CustomerID), zap.Error(err))
			resp.SideEffectErr = appendSideEffectErr(resp.SideEffectErr, fmt.Sprintf("loyalty reversal: %v", err))
		} else {
			resp.PointsReversed = reversed
		}
	}
	return resp, nil
}

// reverseEarn claws back the points the refunded amount originally
// earned. The reversal comes from the sale's own EARN ledger entries,
// prorated by the refunded amount and capped at what remains
// unreversed; the program's current state and rate never enter into
// it, so a program enabled or re-rated after the sale cannot deduct
// points that were never granted.
func (s *Service) reverseEarn(ctx context.Context, actor domain.Actor, sale *domain.Sale, refund *domain.Refund) (int64, error) {
	entries, err := s.repo.ListLoyaltyEntries(ctx, actor.TenantID, sale.CustomerID, 0)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	var earned, reversed int64
	for _, e := range entries {
		if e.SaleID != sale.ID {
			continue
		}
		switch {
		case e.Reason == domain.LoyaltyReasonEarn && e.PointsDelta > 0:
			earned += e.PointsDelta
		case e.Reason == domain.LoyaltyReasonAdjust && e.PointsDelta < 0:
			reversed += -e.PointsDelta
		}
	}
	if earned == 0 {
		return 0, nil
	}

	points := earned
	if sale.TotalCents > 0 {
		points = earned * refund.AmountCents / sale.TotalCents
	}
	if remaining := earned - reversed; points > remaining {
		points = remaining
	}
	if points <= 0 {
		return 0, nil
	}
	_, err = s.repo.IncrementLoyaltyPoints(ctx, domain.LoyaltyEntry{
		ID:          xid.New("loy"),
		TenantID:    actor.TenantID,
		CustomerID:  sale.CustomerID,
		PointsDelta: -points,
		Reason:      domain.LoyaltyReasonAdjust,
		Note:        "refund " + refund.ID,
		SaleID:      sale.ID,
		RecordedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}
	return points, nil
}

// dominantPaymentMethod picks the refund tender when the request does
// not name one: cash when the sale took any cash, otherwise the first
// recorded payment's method.
func (s *Service) dominantPaymentMethod(ctx context.Context, tenantID string, saleID string) (string, error) {
	payments, err := s.repo.ListPayments(ctx, tenantID, saleID)
	if err != nil {
		return "", err
	}
	if len(payments) == 0 {
		return domain.PaymentMethodOther, nil
	}
	for _, p := range payments {
		if p.Method == domain.PaymentMethodCash {
			return domain.PaymentMethodCash, nil
		}
	}
	return payments[0].Method, nil
}

func appendSideEffectErr(existing string, msg string) string {
	if existing == "" {
		return msg
	}
	return existing + "; " + msg
}
