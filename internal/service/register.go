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

func (s *Service) CreateRegister(ctx context.Context, req domain.RegisterCreateRequest) (domain.Register, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Register{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Register{}, fmt.Errorf("register name required: %w", store.ErrInvalidArgument)
	}

	reg := domain.Register{
		ID:         xid.New("reg"),
		TenantID:   actor.TenantID,
		LocationID: strings.TrimSpace(req.LocationID),
		Name:       req.Name,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	saved, err := s.repo.CreateRegister(ctx, reg)
	if err != nil {
		return domain.Register{}, err
	}
	s.logAudit(ctx, "register_create", "register", saved.ID, saved.Name)
	return *saved, nil
}

func (s *Service) ListRegisters(ctx context.Context) ([]domain.Register, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListRegisters(ctx, actor.TenantID)
}

func (s *Service) SetRegisterActive(ctx context.Context, registerID string, active bool) (domain.Register, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.Register{}, err
	}
	saved, err := s.repo.SetRegisterActive(ctx, actor.TenantID, registerID, active)
	if err != nil {
		return domain.Register{}, err
	}
	s.logAudit(ctx, "register_set_active", "register", saved.ID, fmt.Sprintf("active=%t", active))
	return *saved, nil
}

// OpenRegisterSession starts the drawer for one register. The
// repository's guarded insert makes concurrent opens yield exactly one
// OPEN session; the loser sees Conflict.
func (s *Service) OpenRegisterSession(ctx context.Context, registerID string, req domain.SessionOpenRequest) (domain.RegisterSession, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	if req.OpeningCashCents < 0 {
		return domain.RegisterSession{}, fmt.Errorf("opening cash cannot be negative: %w", store.ErrInvalidArgument)
	}

	reg, err := s.repo.GetRegister(ctx, actor.TenantID, registerID)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	if !reg.IsActive {
		return domain.RegisterSession{}, fmt.Errorf("register %s is deactivated: %w", registerID, store.ErrInvalidState)
	}

	now := time.Now().UTC()
	session := domain.RegisterSession{
		ID:                xid.New("sess"),
		TenantID:          actor.TenantID,
		RegisterID:        registerID,
		OpenedBy:          actor.UserID,
		Status:            domain.SessionStatusOpen,
		OpeningCashCents:  req.OpeningCashCents,
		ExpectedCashCents: req.OpeningCashCents,
		OpenedAt:          now,
	}

	var count *domain.CashCount
	if len(req.Denominations) > 0 {
		count = &domain.CashCount{
			ID:            xid.New("count"),
			TenantID:      actor.TenantID,
			SessionID:     session.ID,
			Kind:          domain.CashCountKindOpening,
			Denominations: req.Denominations,
			CountedBy:     actor.UserID,
			CountedAt:     now,
		}
	}

	saved, err := s.repo.OpenSession(ctx, session, count)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	s.logAudit(ctx, "session_open", "register_session", saved.ID,
		fmt.Sprintf("register=%s,opening_cash=%d", registerID, req.OpeningCashCents))
	return *saved, nil
}

// CloseRegisterSession closes the single open session on a register.
// CLOSED is terminal; a second close reports NotFound because no open
// session remains.
func (s *Service) CloseRegisterSession(ctx context.Context, registerID string, req domain.SessionCloseRequest) (domain.RegisterSession, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	if req.ClosingCashCents < 0 {
		return domain.RegisterSession{}, fmt.Errorf("closing cash cannot be negative: %w", store.ErrInvalidArgument)
	}

	now := time.Now().UTC()
	var count *domain.CashCount
	if len(req.Denominations) > 0 {
		count = &domain.CashCount{
			ID:            xid.New("count"),
			TenantID:      actor.TenantID,
			Kind:          domain.CashCountKindClosing,
			Denominations: req.Denominations,
			CountedBy:     actor.UserID,
			CountedAt:     now,
		}
	}

	saved, err := s.repo.CloseSession(ctx, actor.TenantID, registerID, req.ClosingCashCents, actor.UserID, now, count)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	s.logAudit(ctx, "session_close", "register_session", saved.ID,
		fmt.Sprintf("closing_cash=%d,difference=%d", saved.ClosingCashCents, saved.CashDifferenceCents))
	return *saved, nil
}

func (s *Service) GetOpenSession(ctx context.Context, registerID string) (domain.RegisterSession, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	session, err := s.repo.GetOpenSession(ctx, actor.TenantID, registerID)
	if err != nil {
		return domain.RegisterSession{}, err
	}
	return *session, nil
}

func (s *Service) RecordCashMovement(ctx context.Context, sessionID string, req domain.CashMovementRequest) (domain.CashMovement, domain.RegisterSession, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.CashMovement{}, domain.RegisterSession{}, err
	}
	if req.Type != domain.CashMovementPaidIn && req.Type != domain.CashMovementPaidOut {
		return domain.CashMovement{}, domain.RegisterSession{}, fmt.Errorf("unknown movement type %q: %w", req.Type, store.ErrInvalidArgument)
	}
	if req.AmountCents <= 0 {
		return domain.CashMovement{}, domain.RegisterSession{}, fmt.Errorf("movement amount must be positive: %w", store.ErrInvalidArgument)
	}

	movement := domain.CashMovement{
		ID:          xid.New("cm"),
		TenantID:    actor.TenantID,
		SessionID:   sessionID,
		Type:        req.Type,
		AmountCents: req.AmountCents,
		Reason:      strings.TrimSpace(req.Reason),
		RecordedBy:  actor.UserID,
		CreatedAt:   time.Now().UTC(),
	}
	saved, session, err := s.repo.RecordCashMovement(ctx, movement)
	if err != nil {
		return domain.CashMovement{}, domain.RegisterSession{}, err
	}
	s.logAudit(ctx, "cash_movement", "register_session", sessionID,
		fmt.Sprintf("type=%s,amount=%d", req.Type, req.AmountCents))
	return *saved, *session, nil
}

func (s *Service) ListCashMovements(ctx context.Context, sessionID string) ([]domain.CashMovement, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCashMovements(ctx, actor.TenantID, sessionID)
}

// SessionReconciliation recomputes a session's expected cash from its
// primary records. Drift is stored minus recomputed; a skipped
// post-finalize drawer adjustment shows up here as negative drift.
func (s *Service) SessionReconciliation(ctx context.Context, sessionID string) (domain.SessionReconciliation, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return domain.SessionReconciliation{}, err
	}
	session, err := s.repo.GetSession(ctx, actor.TenantID, sessionID)
	if err != nil {
		return domain.SessionReconciliation{}, err
	}
	movements, tendered, refunded, err := s.repo.SessionCashTotals(ctx, actor.TenantID, sessionID)
	if err != nil {
		return domain.SessionReconciliation{}, err
	}

	recomputed := session.OpeningCashCents + movements + tendered - refunded
	return domain.SessionReconciliation{
		SessionID:               session.ID,
		Status:                  session.Status,
		OpeningCashCents:        session.OpeningCashCents,
		MovementCents:           movements,
		CashTenderedCents:       tendered,
		CashRefundedCents:       refunded,
		RecomputedExpectedCents: recomputed,
		StoredExpectedCents:     session.ExpectedCashCents,
		DriftCents:              session.ExpectedCashCents - recomputed,
	}, nil
}
