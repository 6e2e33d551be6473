// Package postgres implements the Repository on PostgreSQL. All
// mutual exclusion lives in the SQL: the partial unique index on open
// sessions, conditional UPDATE ... RETURNING for state transitions and
// the guarded decrement for loyalty redemption. See schema.sql for the
// constraints the queries depend on.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Registers.

func (s *Store) CreateRegister(ctx context.Context, reg domain.Register) (*domain.Register, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registers (id, tenant_id, location_id, name, is_active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, reg.ID, reg.TenantID, reg.LocationID, reg.Name, reg.IsActive, reg.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("register %s: %w", reg.ID, store.ErrConflict)
		}
		return nil, err
	}
	saved := reg
	return &saved, nil
}

func (s *Store) ListRegisters(ctx context.Context, tenantID string) ([]domain.Register, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, location_id, name, is_active, created_at
		FROM registers
		WHERE tenant_id = $1
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registers := make([]domain.Register, 0, 16)
	for rows.Next() {
		var reg domain.Register
		if err := rows.Scan(&reg.ID, &reg.TenantID, &reg.LocationID, &reg.Name, &reg.IsActive, &reg.CreatedAt); err != nil {
			return nil, err
		}
		registers = append(registers, reg)
	}
	return registers, rows.Err()
}

func (s *Store) GetRegister(ctx context.Context, tenantID string, registerID string) (*domain.Register, error) {
	var reg domain.Register
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, location_id, name, is_active, created_at
		FROM registers
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, registerID).Scan(&reg.ID, &reg.TenantID, &reg.LocationID, &reg.Name, &reg.IsActive, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("register %s: %w", registerID, store.ErrNotFound)
		}
		return nil, err
	}
	return &reg, nil
}

func (s *Store) SetRegisterActive(ctx context.Context, tenantID string, registerID string, active bool) (*domain.Register, error) {
	var reg domain.Register
	err := s.db.QueryRowContext(ctx, `
		UPDATE registers
		SET is_active = $3
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, location_id, name, is_active, created_at
	`, tenantID, registerID, active).Scan(&reg.ID, &reg.TenantID, &reg.LocationID, &reg.Name, &reg.IsActive, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("register %s: %w", registerID, store.ErrNotFound)
		}
		return nil, err
	}
	return &reg, nil
}

// Sessions.

func (s *Store) OpenSession(ctx context.Context, session domain.RegisterSession, count *domain.CashCount) (*domain.RegisterSession, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The partial unique index on (tenant_id, register_id) WHERE
	// status = 'open' makes the existence check and the insert one
	// atomic step: the race loser gets a unique violation.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO register_sessions (
			id, tenant_id, register_id, opened_by, status,
			opening_cash_cents, expected_cash_cents, closing_cash_cents,
			cash_difference_cents, opened_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,0,0,$8)
	`, session.ID, session.TenantID, session.RegisterID, session.OpenedBy, session.Status,
		session.OpeningCashCents, session.ExpectedCashCents, session.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("register %s already has an open session: %w", session.RegisterID, store.ErrConflict)
		}
		return nil, err
	}

	if count != nil {
		if err := insertCashCount(ctx, tx, *count); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := session
	return &saved, nil
}

func (s *Store) CloseSession(ctx context.Context, tenantID string, registerID string, closingCashCents int64, closedBy string, closedAt time.Time, count *domain.CashCount) (*domain.RegisterSession, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var session domain.RegisterSession
	var closedAtNull sql.NullTime
	var closedByNull sql.NullString
	err = tx.QueryRowContext(ctx, `
		UPDATE register_sessions
		SET status = 'closed',
			closing_cash_cents = $3,
			cash_difference_cents = $3 - expected_cash_cents,
			closed_by = $4,
			closed_at = $5
		WHERE tenant_id = $1 AND register_id = $2 AND status = 'open'
		RETURNING id, tenant_id, register_id, opened_by, closed_by, status,
			opening_cash_cents, expected_cash_cents, closing_cash_cents,
			cash_difference_cents, opened_at, closed_at
	`, tenantID, registerID, closingCashCents, closedBy, closedAt).Scan(
		&session.ID, &session.TenantID, &session.RegisterID, &session.OpenedBy, &closedByNull,
		&session.Status, &session.OpeningCashCents, &session.ExpectedCashCents,
		&session.ClosingCashCents, &session.CashDifferenceCents, &session.OpenedAt, &closedAtNull,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no open session for register %s: %w", registerID, store.ErrNotFound)
		}
		return nil, err
	}
	session.ClosedBy = closedByNull.String
	if closedAtNull.Valid {
		at := closedAtNull.Time.UTC()
		session.ClosedAt = &at
	}

	if count != nil {
		c := *count
		c.SessionID = session.ID
		if err := insertCashCount(ctx, tx, c); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) GetOpenSession(ctx context.Context, tenantID string, registerID string) (*domain.RegisterSession, error) {
	session, err := s.querySession(ctx, `
		SELECT id, tenant_id, register_id, opened_by, closed_by, status,
			opening_cash_cents, expected_cash_cents, closing_cash_cents,
			cash_difference_cents, opened_at, closed_at
		FROM register_sessions
		WHERE tenant_id = $1 AND register_id = $2 AND status = 'open'
	`, tenantID, registerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no open session for register %s: %w", registerID, store.ErrNotFound)
	}
	return session, err
}

func (s *Store) GetSession(ctx context.Context, tenantID string, sessionID string) (*domain.RegisterSession, error) {
	session, err := s.querySession(ctx, `
		SELECT id, tenant_id, register_id, opened_by, closed_by, status,
			opening_cash_cents, expected_cash_cents, closing_cash_cents,
			cash_difference_cents, opened_at, closed_at
		FROM register_sessions
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	return session, err
}

func (s *Store) querySession(ctx context.Context, query string, args ...any) (*domain.RegisterSession, error) {
	var session domain.RegisterSession
	var closedAtNull sql.NullTime
	var closedByNull sql.NullString
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&session.ID, &session.TenantID, &session.RegisterID, &session.OpenedBy, &closedByNull,
		&session.Status, &session.OpeningCashCents, &session.ExpectedCashCents,
		&session.ClosingCashCents, &session.CashDifferenceCents, &session.OpenedAt, &closedAtNull,
	)
	if err != nil {
		return nil, err
	}
	session.OpenedAt = session.OpenedAt.UTC()
	session.ClosedBy = closedByNull.String
	if closedAtNull.Valid {
		at := closedAtNull.Time.UTC()
		session.ClosedAt = &at
	}
	return &session, nil
}

// Cash ledger.

func (s *Store) RecordCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, *domain.RegisterSession, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	delta := movement.AmountCents
	if movement.Type == domain.CashMovementPaidOut {
		delta = -delta
	}

	var session domain.RegisterSession
	var closedAtNull sql.NullTime
	var closedByNull sql.NullString
	err = tx.QueryRowContext(ctx, `
		UPDATE register_sessions
		SET expected_cash_cents = expected_cash_cents + $3
		WHERE tenant_id = $1 AND id = $2 AND status = 'open'
		RETURNING id, tenant_id, register_id, opened_by, closed_by, status,
			opening_cash_cents, expected_cash_cents, closing_cash_cents,
			cash_difference_cents, opened_at, closed_at
	`, movement.TenantID, movement.SessionID, delta).Scan(
		&session.ID, &session.TenantID, &session.RegisterID, &session.OpenedBy, &closedByNull,
		&session.Status, &session.OpeningCashCents, &session.ExpectedCashCents,
		&session.ClosingCashCents, &session.CashDifferenceCents, &session.OpenedAt, &closedAtNull,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, s.classifySessionMiss(ctx, movement.TenantID, movement.SessionID)
		}
		return nil, nil, err
	}
	session.ClosedBy = closedByNull.String

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_movements (id, tenant_id, session_id, type, amount_cents, reason, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, movement.ID, movement.TenantID, movement.SessionID, movement.Type,
		movement.AmountCents, movement.Reason, movement.RecordedBy, movement.CreatedAt)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	saved := movement
	return &saved, &session, nil
}

// classifySessionMiss distinguishes a missing session from a closed
// one after a conditional update matched no rows.
func (s *Store) classifySessionMiss(ctx context.Context, tenantID string, sessionID string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT status FROM register_sessions WHERE tenant_id = $1 AND id = $2
	`, tenantID, sessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("session %s is %s: %w", sessionID, status, store.ErrInvalidState)
}

func (s *Store) AdjustSessionCash(ctx context.Context, tenantID string, sessionID string, deltaCents int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE register_sessions
		SET expected_cash_cents = expected_cash_cents + $3
		WHERE tenant_id = $1 AND id = $2 AND status = 'open'
	`, tenantID, sessionID, deltaCents)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		var status string
		err := s.db.QueryRowContext(ctx, `
			SELECT status FROM register_sessions WHERE tenant_id = $1 AND id = $2
		`, tenantID, sessionID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
		}
		// Closed drawers no longer track expected cash.
		return false, err
	}
	return true, nil
}

func (s *Store) ListCashMovements(ctx context.Context, tenantID string, sessionID string) ([]domain.CashMovement, error) {
	if _, err := s.GetSession(ctx, tenantID, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, session_id, type, amount_cents, reason, recorded_by, created_at
		FROM cash_movements
		WHERE tenant_id = $1 AND session_id = $2
		ORDER BY created_at
	`, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.CashMovement, 0, 16)
	for rows.Next() {
		var m domain.CashMovement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.SessionID, &m.Type, &m.AmountCents, &m.Reason, &m.RecordedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *Store) SessionCashTotals(ctx context.Context, tenantID string, sessionID string) (int64, int64, int64, error) {
	if _, err := s.GetSession(ctx, tenantID, sessionID); err != nil {
		return 0, 0, 0, err
	}

	var movementCents int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'paid_out' THEN -amount_cents ELSE amount_cents END), 0)
		FROM cash_movements
		WHERE tenant_id = $1 AND session_id = $2
	`, tenantID, sessionID).Scan(&movementCents)
	if err != nil {
		return 0, 0, 0, err
	}

	var tendered int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(cp.cash_paid - s.change_due_cents), 0)
		FROM sales s
		JOIN (
			SELECT sale_id, SUM(amount_cents) AS cash_paid
			FROM payments
			WHERE tenant_id = $1 AND method = 'cash'
			GROUP BY sale_id
		) cp ON cp.sale_id = s.id
		WHERE s.tenant_id = $1 AND s.session_id = $2 AND s.status = 'completed'
	`, tenantID, sessionID).Scan(&tendered)
	if err != nil {
		return 0, 0, 0, err
	}

	var refunded int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(r.amount_cents), 0)
		FROM refunds r
		JOIN sales s ON s.id = r.sale_id
		WHERE s.tenant_id = $1 AND s.session_id = $2 AND r.payment_method = 'cash'
	`, tenantID, sessionID).Scan(&refunded)
	if err != nil {
		return 0, 0, 0, err
	}
	return movementCents, tendered, refunded, nil
}

// Catalog. Read failures other than a missing row surface as
// Unavailable so the caller's retry policy can engage.

func (s *Store) GetCatalogProduct(ctx context.Context, tenantID string, productID string) (*domain.CatalogProduct, error) {
	var p domain.CatalogProduct
	var taxIDs []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, price_cents, tax_ids, active
		FROM catalog_products
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, productID).Scan(&p.ID, &p.TenantID, &p.Name, &p.PriceCents, &taxIDs, &p.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("product %s: %v: %w", productID, err, store.ErrUnavailable)
	}
	if len(taxIDs) > 0 {
		if err := json.Unmarshal(taxIDs, &p.TaxIDs); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (s *Store) GetTaxRate(ctx context.Context, tenantID string, taxID string) (*domain.TaxRate, error) {
	var t domain.TaxRate
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, rate_bps, inclusive
		FROM tax_rates
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, taxID).Scan(&t.ID, &t.TenantID, &t.Name, &t.RateBps, &t.Inclusive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tax %s: %w", taxID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("tax %s: %v: %w", taxID, err, store.ErrUnavailable)
	}
	return &t, nil
}

// Sales.

func (s *Store) CreateDraftSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, tenant_id, status, location_id, register_id, session_id, cashier_id,
			customer_id, subtotal_cents, discount_cents, tax_cents, shipping_cents,
			total_cents, paid_cents, change_due_cents, fulfillment_status, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,0,0,$14,$15)
	`, sale.ID, sale.TenantID, sale.Status, nullIfEmpty(sale.LocationID), nullIfEmpty(sale.RegisterID),
		nullIfEmpty(sale.SessionID), sale.CashierID, nullIfEmpty(sale.CustomerID),
		sale.SubtotalCents, sale.DiscountCents, sale.TaxCents, sale.ShippingCents,
		sale.TotalCents, sale.FulfillmentStatus, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("sale %s: %w", sale.ID, store.ErrConflict)
		}
		return nil, err
	}

	for _, item := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, tenant_id, sale_id, product_id, product_name, quantity,
				unit_price_cents, unit_discount_cents, line_subtotal_cents,
				line_discount_cents, line_tax_cents, line_total_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, item.ID, item.TenantID, item.SaleID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPriceCents, item.UnitDiscountCents, item.LineSubtotalCents,
			item.LineDiscountCents, item.LineTaxCents, item.LineTotalCents)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	saved := sale
	return &saved, nil
}

func (s *Store) GetSale(ctx context.Context, tenantID string, saleID string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, status, location_id, register_id, session_id, cashier_id,
			customer_id, subtotal_cents, discount_cents, tax_cents, shipping_cents,
			total_cents, paid_cents, change_due_cents, fulfillment_status, created_at, completed_at
		FROM sales
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, saleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
		}
		return nil, err
	}

	items, err := s.listSaleItems(ctx, s.db, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

func (s *Store) FinalizeSale(ctx context.Context, tenantID string, saleID string, payments []domain.PaymentInput, receivedBy string, at time.Time) (*domain.Sale, *domain.Receipt, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	sale, err := scanSale(tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, status, location_id, register_id, session_id, cashier_id,
			customer_id, subtotal_cents, discount_cents, tax_cents, shipping_cents,
			total_cents, paid_cents, change_due_cents, fulfillment_status, created_at, completed_at
		FROM sales
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, saleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
		}
		return nil, nil, err
	}
	if sale.Status != domain.SaleStatusDraft {
		return nil, nil, fmt.Errorf("sale %s is %s: %w", saleID, sale.Status, store.ErrInvalidState)
	}

	items, err := s.listSaleItems(ctx, tx, tenantID, saleID)
	if err != nil {
		return nil, nil, err
	}
	sale.Items = items

	var lineSubtotal int64
	for _, item := range items {
		lineSubtotal += item.LineSubtotalCents
	}
	if lineSubtotal != sale.SubtotalCents {
		return nil, nil, fmt.Errorf("sale %s line totals disagree with stored subtotal: %w", saleID, store.ErrInconsistent)
	}

	var paid int64
	for _, p := range payments {
		paid += p.AmountCents
	}
	if paid < sale.TotalCents {
		return nil, nil, fmt.Errorf("paid %d of %d: %w", paid, sale.TotalCents, store.ErrInvalidArgument)
	}

	for _, p := range payments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payments (id, tenant_id, sale_id, method, amount_cents, reference, received_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, xid.New("pay"), tenantID, saleID, p.Method, p.AmountCents, nullIfEmpty(p.Reference), receivedBy, at)
		if err != nil {
			return nil, nil, err
		}
	}

	sale.Status = domain.SaleStatusCompleted
	sale.PaidCents = paid
	sale.ChangeDueCents = paid - sale.TotalCents
	completedAt := at
	sale.CompletedAt = &completedAt

	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET status = 'completed', paid_cents = $3, change_due_cents = $4, completed_at = $5
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, saleID, paid, sale.ChangeDueCents, at)
	if err != nil {
		return nil, nil, err
	}

	receipt := domain.Receipt{
		ID:             xid.New("rcpt"),
		TenantID:       tenantID,
		SaleID:         saleID,
		Number:         xid.New("no"),
		SubtotalCents:  sale.SubtotalCents,
		DiscountCents:  sale.DiscountCents,
		TaxCents:       sale.TaxCents,
		ShippingCents:  sale.ShippingCents,
		TotalCents:     sale.TotalCents,
		PaidCents:      paid,
		ChangeDueCents: sale.ChangeDueCents,
		Payments:       append([]domain.PaymentInput(nil), payments...),
		IssuedAt:       at,
	}
	paymentsJSON, err := json.Marshal(receipt.Payments)
	if err != nil {
		return nil, nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO receipts (
			id, tenant_id, sale_id, number, subtotal_cents, discount_cents, tax_cents,
			shipping_cents, total_cents, paid_cents, change_due_cents, payments, issued_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, receipt.ID, receipt.TenantID, receipt.SaleID, receipt.Number, receipt.SubtotalCents,
		receipt.DiscountCents, receipt.TaxCents, receipt.ShippingCents, receipt.TotalCents,
		receipt.PaidCents, receipt.ChangeDueCents, paymentsJSON, receipt.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, nil, fmt.Errorf("sale %s already has a receipt: %w", saleID, store.ErrConflict)
		}
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return sale, &receipt, nil
}

func (s *Store) GetReceipt(ctx context.Context, tenantID string, saleID string) (*domain.Receipt, error) {
	var r domain.Receipt
	var paymentsJSON []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, sale_id, number, subtotal_cents, discount_cents, tax_cents,
			shipping_cents, total_cents, paid_cents, change_due_cents, payments, issued_at
		FROM receipts
		WHERE tenant_id = $1 AND sale_id = $2
	`, tenantID, saleID).Scan(&r.ID, &r.TenantID, &r.SaleID, &r.Number, &r.SubtotalCents,
		&r.DiscountCents, &r.TaxCents, &r.ShippingCents, &r.TotalCents,
		&r.PaidCents, &r.ChangeDueCents, &paymentsJSON, &r.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("receipt for sale %s: %w", saleID, store.ErrNotFound)
		}
		return nil, err
	}
	if len(paymentsJSON) > 0 {
		if err := json.Unmarshal(paymentsJSON, &r.Payments); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

func (s *Store) ListPayments(ctx context.Context, tenantID string, saleID string) ([]domain.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, sale_id, method, amount_cents, COALESCE(reference, ''), received_by, created_at
		FROM payments
		WHERE tenant_id = $1 AND sale_id = $2
		ORDER BY created_at
	`, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]domain.Payment, 0, 4)
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SaleID, &p.Method, &p.AmountCents, &p.Reference, &p.ReceivedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Refunds.

func (s *Store) CreateRefund(ctx context.Context, tenantID string, saleID string, lines []domain.RefundLineRequest, reason string, paymentMethod string, processedBy string) (*domain.Refund, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("refund has no lines: %w", store.ErrInvalidArgument)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM sales WHERE tenant_id = $1 AND id = $2 FOR UPDATE
	`, tenantID, saleID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
		}
		return nil, err
	}
	if status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("sale %s is %s: %w", saleID, status, store.ErrInvalidState)
	}

	items, err := s.listSaleItems(ctx, tx, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.SaleItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	already := map[string]int{}
	rows, err := tx.QueryContext(ctx, `
		SELECT ri.sale_item_id, COALESCE(SUM(ri.quantity), 0)
		FROM refund_items ri
		JOIN refunds r ON r.id = ri.refund_id
		WHERE r.tenant_id = $1 AND r.sale_id = $2
		GROUP BY ri.sale_item_id
	`, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var itemID string
		var qty int
		if err := rows.Scan(&itemID, &qty); err != nil {
			rows.Close()
			return nil, err
		}
		already[itemID] = qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refund := domain.Refund{
		ID:            xid.New("rfnd"),
		TenantID:      tenantID,
		SaleID:        saleID,
		Reason:        reason,
		PaymentMethod: paymentMethod,
		ProcessedBy:   processedBy,
		CreatedAt:     time.Now().UTC(),
	}
	for _, line := range lines {
		item, ok := byID[line.SaleItemID]
		if !ok {
			return nil, fmt.Errorf("sale item %s: %w", line.SaleItemID, store.ErrNotFound)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("refund quantity must be positive: %w", store.ErrInvalidArgument)
		}
		prior := already[line.SaleItemID]
		if line.Quantity > item.Quantity-prior {
			return nil, fmt.Errorf("refund quantity %d exceeds remaining %d on item %s: %w",
				line.Quantity, item.Quantity-prior, line.SaleItemID, store.ErrInvalidArgument)
		}
		amount := prorate(item.LineTotalCents, item.Quantity, prior, line.Quantity)
		refund.Items = append(refund.Items, domain.RefundItem{
			ID:          xid.New("rfit"),
			TenantID:    tenantID,
			RefundID:    refund.ID,
			SaleItemID:  line.SaleItemID,
			Quantity:    line.Quantity,
			AmountCents: amount,
			Restock:     line.Restock,
		})
		refund.AmountCents += amount
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refunds (id, tenant_id, sale_id, reason, amount_cents, payment_method, processed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, refund.ID, refund.TenantID, refund.SaleID, refund.Reason, refund.AmountCents,
		refund.PaymentMethod, refund.ProcessedBy, refund.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, item := range refund.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO refund_items (id, tenant_id, refund_id, sale_item_id, quantity, amount_cents, restock)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, item.ID, item.TenantID, item.RefundID, item.SaleItemID, item.Quantity, item.AmountCents, item.Restock)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &refund, nil
}

// prorate distributes a frozen line total across refunded quantities
// telescopically, so repeated partial refunds sum to exactly the line
// total once the quantity is exhausted.
func prorate(lineTotal int64, purchased, already, qty int) int64 {
	upper := lineTotal * int64(already+qty) / int64(purchased)
	lower := lineTotal * int64(already) / int64(purchased)
	return upper - lower
}

func (s *Store) RefundedQuantities(ctx context.Context, tenantID string, saleID string) (map[string]int, error) {
	if _, err := s.GetSale(ctx, tenantID, saleID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.sale_item_id, COALESCE(SUM(ri.quantity), 0)
		FROM refund_items ri
		JOIN refunds r ON r.id = ri.refund_id
		WHERE r.tenant_id = $1 AND r.sale_id = $2
		GROUP BY ri.sale_item_id
	`, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var itemID string
		var qty int
		if err := rows.Scan(&itemID, &qty); err != nil {
			return nil, err
		}
		out[itemID] = qty
	}
	return out, rows.Err()
}

// Loyalty.

func (s *Store) GetLoyaltyProgram(ctx context.Context, tenantID string) (*domain.LoyaltyProgram, error) {
	var p domain.LoyaltyProgram
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, active, earn_rate, updated_at
		FROM loyalty_programs
		WHERE tenant_id = $1
	`, tenantID).Scan(&p.TenantID, &p.Active, &p.EarnRate, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loyalty program for tenant %s: %w", tenantID, store.ErrNotFound)
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) SetLoyaltyProgram(ctx context.Context, program domain.LoyaltyProgram) (*domain.LoyaltyProgram, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO loyalty_programs (tenant_id, active, earn_rate, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (tenant_id) DO UPDATE
		SET active = EXCLUDED.active, earn_rate = EXCLUDED.earn_rate, updated_at = EXCLUDED.updated_at
	`, program.TenantID, program.Active, program.EarnRate, program.UpdatedAt)
	if err != nil {
		return nil, err
	}
	saved := program
	return &saved, nil
}

func (s *Store) GetLoyaltyAccount(ctx context.Context, tenantID string, customerID string) (*domain.LoyaltyAccount, error) {
	var acct domain.LoyaltyAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, customer_id, points_balance, created_at, updated_at
		FROM loyalty_accounts
		WHERE tenant_id = $1 AND customer_id = $2
	`, tenantID, customerID).Scan(&acct.TenantID, &acct.CustomerID, &acct.PointsBalance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("loyalty account %s: %w", customerID, store.ErrNotFound)
		}
		return nil, err
	}
	return &acct, nil
}

func (s *Store) IncrementLoyaltyPoints(ctx context.Context, entry domain.LoyaltyEntry) (*domain.LoyaltyAccount, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var acct domain.LoyaltyAccount
	err = tx.QueryRowContext(ctx, `
		INSERT INTO loyalty_accounts (tenant_id, customer_id, points_balance, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		ON CONFLICT (tenant_id, customer_id) DO UPDATE
		SET points_balance = loyalty_accounts.points_balance + EXCLUDED.points_balance,
			updated_at = EXCLUDED.updated_at
		RETURNING tenant_id, customer_id, points_balance, created_at, updated_at
	`, entry.TenantID, entry.CustomerID, entry.PointsDelta, entry.CreatedAt).Scan(
		&acct.TenantID, &acct.CustomerID, &acct.PointsBalance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := insertLoyaltyEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) RedeemLoyaltyPoints(ctx context.Context, entry domain.LoyaltyEntry) (*domain.LoyaltyAccount, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	points := -entry.PointsDelta

	// The balance guard in the WHERE clause is the whole concurrency
	// story: two racing redemptions serialize on the row and the one
	// that would overdraw matches nothing.
	var acct domain.LoyaltyAccount
	err = tx.QueryRowContext(ctx, `
		UPDATE loyalty_accounts
		SET points_balance = points_balance - $3, updated_at = $4
		WHERE tenant_id = $1 AND customer_id = $2 AND points_balance >= $3
		RETURNING tenant_id, customer_id, points_balance, created_at, updated_at
	`, entry.TenantID, entry.CustomerID, points, entry.CreatedAt).Scan(
		&acct.TenantID, &acct.CustomerID, &acct.PointsBalance, &acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %s cannot redeem %d points: %w",
				entry.CustomerID, points, store.ErrInsufficientBalance)
		}
		return nil, err
	}

	if err := insertLoyaltyEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &acct, nil
}

func insertLoyaltyEntry(ctx context.Context, tx *sql.Tx, entry domain.LoyaltyEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loyalty_ledger (id, tenant_id, customer_id, points_delta, reason, note, sale_id, recorded_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.TenantID, entry.CustomerID, entry.PointsDelta, entry.Reason,
		nullIfEmpty(entry.Note), nullIfEmpty(entry.SaleID), entry.RecordedBy, entry.CreatedAt)
	return err
}

func (s *Store) ListLoyaltyEntries(ctx context.Context, tenantID string, customerID string, limit int) ([]domain.LoyaltyEntry, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, customer_id, points_delta, reason, COALESCE(note, ''), COALESCE(sale_id, ''), recorded_by, created_at
		FROM loyalty_ledger
		WHERE tenant_id = $1 AND customer_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LoyaltyEntry, 0, limit)
	for rows.Next() {
		var e domain.LoyaltyEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.CustomerID, &e.PointsDelta, &e.Reason, &e.Note, &e.SaleID, &e.RecordedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Audit.

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.TenantID, entry.ActorID, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, tenantID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, actor_id, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY created_at DESC
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.ActorID, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// Staff.

func (s *Store) CreateEmployee(ctx context.Context, emp domain.EmployeeProfile) (*domain.EmployeeProfile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, tenant_id, name, hourly_rate_cents, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, emp.ID, emp.TenantID, emp.Name, emp.HourlyRateCents, emp.Active, emp.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("employee %s: %w", emp.ID, store.ErrConflict)
		}
		return nil, err
	}
	saved := emp
	return &saved, nil
}

func (s *Store) ListEmployees(ctx context.Context, tenantID string) ([]domain.EmployeeProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, hourly_rate_cents, active, created_at
		FROM employees
		WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.EmployeeProfile, 0, 16)
	for rows.Next() {
		var emp domain.EmployeeProfile
		if err := rows.Scan(&emp.ID, &emp.TenantID, &emp.Name, &emp.HourlyRateCents, &emp.Active, &emp.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (s *Store) ClockIn(ctx context.Context, entry domain.TimeClockEntry) (*domain.TimeClockEntry, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT true FROM employees WHERE tenant_id = $1 AND id = $2
	`, entry.TenantID, entry.EmployeeID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", entry.EmployeeID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	// Partial unique index on (tenant_id, employee_id) WHERE clock_out
	// IS NULL keeps at most one open entry per employee.
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO time_clock_entries (id, tenant_id, employee_id, clock_in)
		VALUES ($1,$2,$3,$4)
	`, entry.ID, entry.TenantID, entry.EmployeeID, entry.ClockIn)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("employee %s is already clocked in: %w", entry.EmployeeID, store.ErrConflict)
		}
		return nil, err
	}
	saved := entry
	return &saved, nil
}

func (s *Store) ClockOut(ctx context.Context, tenantID string, employeeID string, at time.Time) (*domain.TimeClockEntry, error) {
	var entry domain.TimeClockEntry
	var clockOut sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE time_clock_entries
		SET clock_out = $3
		WHERE tenant_id = $1 AND employee_id = $2 AND clock_out IS NULL
		RETURNING id, tenant_id, employee_id, clock_in, clock_out
	`, tenantID, employeeID, at).Scan(&entry.ID, &entry.TenantID, &entry.EmployeeID, &entry.ClockIn, &clockOut)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee %s has no open time entry: %w", employeeID, store.ErrNotFound)
		}
		return nil, err
	}
	if clockOut.Valid {
		out := clockOut.Time.UTC()
		entry.ClockOut = &out
	}
	return &entry, nil
}

func (s *Store) ListTimeClockEntries(ctx context.Context, tenantID string, from time.Time, to time.Time) ([]domain.TimeClockEntry, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, employee_id, clock_in, clock_out
		FROM time_clock_entries
		WHERE tenant_id = $1 AND clock_in >= $2 AND clock_in <= $3
		ORDER BY clock_in
	`, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.TimeClockEntry, 0, 32)
	for rows.Next() {
		var entry domain.TimeClockEntry
		var clockOut sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.EmployeeID, &entry.ClockIn, &clockOut); err != nil {
			return nil, err
		}
		if clockOut.Valid {
			out := clockOut.Time.UTC()
			entry.ClockOut = &out
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Users.

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, tenant_id, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.TenantID, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Username, store.ErrConflict)
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, tenant_id, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.TenantID, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	return nil
}

// Helpers.

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) listSaleItems(ctx context.Context, q queryer, tenantID string, saleID string) ([]domain.SaleItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, sale_id, product_id, product_name, quantity,
			unit_price_cents, unit_discount_cents, line_subtotal_cents,
			line_discount_cents, line_tax_cents, line_total_cents
		FROM sale_items
		WHERE tenant_id = $1 AND sale_id = $2
		ORDER BY id
	`, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0, 8)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(&item.ID, &item.TenantID, &item.SaleID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPriceCents, &item.UnitDiscountCents, &item.LineSubtotalCents,
			&item.LineDiscountCents, &item.LineTaxCents, &item.LineTotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanSale(row *sql.Row) (*domain.Sale, error) {
	var sale domain.Sale
	var locationID, registerID, sessionID, customerID sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(&sale.ID, &sale.TenantID, &sale.Status, &locationID, &registerID, &sessionID,
		&sale.CashierID, &customerID, &sale.SubtotalCents, &sale.DiscountCents, &sale.TaxCents,
		&sale.ShippingCents, &sale.TotalCents, &sale.PaidCents, &sale.ChangeDueCents,
		&sale.FulfillmentStatus, &sale.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	sale.LocationID = locationID.String
	sale.RegisterID = registerID.String
	sale.SessionID = sessionID.String
	sale.CustomerID = customerID.String
	sale.CreatedAt = sale.CreatedAt.UTC()
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		sale.CompletedAt = &at
	}
	return &sale, nil
}

func insertCashCount(ctx context.Context, tx *sql.Tx, count domain.CashCount) error {
	denominations, err := json.Marshal(count.Denominations)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cash_counts (id, tenant_id, session_id, kind, denominations, counted_by, counted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, count.ID, count.TenantID, count.SessionID, count.Kind, denominations, count.CountedBy, count.CountedAt)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
