package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

// earnablePoints converts an amount spent into whole points under the
// program's rate, truncating fractions.
func earnablePoints(program *domain.LoyaltyProgram, amountCents int64) int64 {
	if program == nil || !program.Active || amountCents <= 0 {
		return 0
	}
	return int64(math.Floor(float64(amountCents) / 100.0 * program.EarnRate))
}

func (s *Service) SetLoyaltyProgram(ctx context.Context, active bool, earnRate float64) (domain.LoyaltyProgram, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.LoyaltyProgram{}, err
	}
	if earnRate < 0 {
		return domain.LoyaltyProgram{}, fmt.Errorf("earn rate cannot be negative: %w", store.ErrInvalidArgument)
	}
	saved, err := s.repo.SetLoyaltyProgram(ctx, domain.LoyaltyProgram{
		TenantID:  actor.TenantID,
		Active:    active,
		EarnRate:  earnRate,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.LoyaltyProgram{}, err
	}
	s.logAudit(ctx, "loyalty_program_set", "loyalty_program", actor.TenantID,
		fmt.Sprintf("active=%t,rate=%.4f", active, earnRate))
	return *saved, nil
}

func (s *Service) GetLoyaltyAccount(ctx context.Context, customerID string) (domain.LoyaltyAccount, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.LoyaltyAccount{}, err
	}
	acct, err := s.repo.GetLoyaltyAccount(ctx, actor.TenantID, customerID)
	if err != nil {
		return domain.LoyaltyAccount{}, err
	}
	return *acct, nil
}

func (s *Service) ListLoyaltyEntries(ctx context.Context, customerID string, limit int) ([]domain.LoyaltyEntry, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListLoyaltyEntries(ctx, actor.TenantID, customerID, limit)
}

// EarnPoints accrues points for an amount spent. Without an active
// program, or when the amount rounds to zero points, it is a no-op
// that succeeds with a zero delta.
func (s *Service) EarnPoints(ctx context.Context, req domain.LoyaltyEarnRequest) (domain.LoyaltyMutationResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.LoyaltyMutationResponse{}, err
	}
	if req.CustomerID == "" {
		return domain.LoyaltyMutationResponse{}, fmt.Errorf("customer required: %w", store.ErrInvalidArgument)
	}

	program, err := s.repo.GetLoyaltyProgram(ctx, actor.TenantID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.LoyaltyMutationResponse{}, err
	}
	points := earnablePoints(program, req.AmountSpentCents)
	if points <= 0 {
		return s.currentBalance(ctx, actor.TenantID, req.CustomerID)
	}

	acct, err := s.repo.IncrementLoyaltyPoints(ctx, domain.LoyaltyEntry{
		ID:          xid.New("loy"),
		TenantID:    actor.TenantID,
		CustomerID:  req.CustomerID,
		PointsDelta: points,
		Reason:      domain.LoyaltyReasonEarn,
		SaleID:      req.SaleID,
		RecordedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.LoyaltyMutationResponse{}, err
	}
	s.logAudit(ctx, "loyalty_earn", "loyalty_account", req.CustomerID,
		fmt.Sprintf("points=%d,sale=%s", points, req.SaleID))
	return domain.LoyaltyMutationResponse{
		CustomerID:    req.CustomerID,
		PointsDelta:   points,
		PointsBalance: acct.PointsBalance,
	}, nil
}

// RedeemPoints spends points against a balance. The repository's
// conditional decrement guarantees a burst of concurrent redemptions
// never overdraws.
func (s *Service) RedeemPoints(ctx context.Context, req domain.LoyaltyRedeemRequest) (domain.LoyaltyMutationResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.LoyaltyMutationResponse{}, err
	}
	if req.CustomerID == "" {
		return domain.LoyaltyMutationResponse{}, fmt.Errorf("customer required: %w", store.ErrInvalidArgument)
	}
	if req.Points <= 0 {
		return domain.LoyaltyMutationResponse{}, fmt.Errorf("redeem points must be positive: %w", store.ErrInvalidArgument)
	}

	acct, err := s.repo.RedeemLoyaltyPoints(ctx, domain.LoyaltyEntry{
		ID:          xid.New("loy"),
		TenantID:    actor.TenantID,
		CustomerID:  req.CustomerID,
		PointsDelta: -req.Points,
		Reason:      domain.LoyaltyReasonRedeem,
		SaleID:      req.SaleID,
		RecordedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.LoyaltyMutationResponse{}, err
	}
	s.logAudit(ctx, "loyalty_redeem", "loyalty_account", req.CustomerID,
		fmt.Sprintf("points=%d,sale=%s", req.Points, req.SaleID))
	return domain.LoyaltyMutationResponse{
		CustomerID:    req.CustomerID,
		PointsDelta:   -req.Points,
		PointsBalance: acct.PointsBalance,
	}, nil
}

// AdjustPoints applies a signed manual correction with a ledger entry.
func (s *Service) AdjustPoints(ctx context.Context, req domain.LoyaltyAdjustRequest) (domain.LoyaltyMutationResponse, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.LoyaltyMutationResponse{}, err
	}
	if req.CustomerID == "" {
		return domain.LoyaltyMutationResponse{}, fmt.Errorf("customer required: %w", store.ErrInvalidArgument)
	}
	if req.PointsDelta == 0 {
		return domain.LoyaltyMutationResponse{}, fmt.Errorf("adjustment delta cannot be zero: %w", store.ErrInvalidArgument)
	}

	acct, err := s.repo.IncrementLoyaltyPoints(ctx, domain.LoyaltyEntry{
		ID:          xid.New("loy"),
		TenantID:    actor.TenantID,
		CustomerID:  req.CustomerID,
		PointsDelta: req.PointsDelta,
		Reason:      domain.LoyaltyReasonAdjust,
		Note:        req.Reason,
		RecordedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.LoyaltyMutationResponse{}, err
	}
	s.logAudit(ctx, "loyalty_adjust", "loyalty_account", req.CustomerID,
		fmt.Sprintf("delta=%d,reason=%s", req.PointsDelta, req.Reason))
	return domain.LoyaltyMutationResponse{
		CustomerID:    req.CustomerID,
		PointsDelta:   req.PointsDelta,
		PointsBalance: acct.PointsBalance,
	}, nil
}

func (s *Service) currentBalance(ctx context.Context, tenantID string, customerID string) (domain.LoyaltyMutationResponse, error) {
	resp := domain.LoyaltyMutationResponse{CustomerID: customerID}
	acct, err := s.repo.GetLoyaltyAccount(ctx, tenantID, customerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return resp, nil
		}
		return resp, err
	}
	resp.PointsBalance = acct.PointsBalance
	return resp, nil
}
