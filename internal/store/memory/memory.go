// Package memory is the in-process Repository used for development and
// tests. Its single mutex plays the role of the datastore's own
// atomicity: every method is one critical section, so the conditional
// semantics (guarded insert, conditional decrement) match the SQL
// implementation exactly.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/store"
	"tillpoint/backend/internal/xid"
)

type Store struct {
	mu sync.Mutex

	registers map[string]domain.Register
	sessions  map[string]domain.RegisterSession
	movements map[string][]domain.CashMovement
	counts    map[string][]domain.CashCount
	products  map[string]domain.CatalogProduct
	taxes     map[string]domain.TaxRate
	sales     map[string]domain.Sale
	payments  map[string][]domain.Payment
	receipts  map[string]domain.Receipt
	refunds   map[string][]domain.Refund
	programs  map[string]domain.LoyaltyProgram
	accounts  map[string]domain.LoyaltyAccount
	ledger    map[string][]domain.LoyaltyEntry
	audits    []domain.AuditLog
	employees map[string]domain.EmployeeProfile
	timeclock map[string]domain.TimeClockEntry
	users     map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		registers: map[string]domain.Register{},
		sessions:  map[string]domain.RegisterSession{},
		movements: map[string][]domain.CashMovement{},
		counts:    map[string][]domain.CashCount{},
		products:  map[string]domain.CatalogProduct{},
		taxes:     map[string]domain.TaxRate{},
		sales:     map[string]domain.Sale{},
		payments:  map[string][]domain.Payment{},
		receipts:  map[string]domain.Receipt{},
		refunds:   map[string][]domain.Refund{},
		programs:  map[string]domain.LoyaltyProgram{},
		accounts:  map[string]domain.LoyaltyAccount{},
		ledger:    map[string][]domain.LoyaltyEntry{},
		employees: map[string]domain.EmployeeProfile{},
		timeclock: map[string]domain.TimeClockEntry{},
		users:     map[string]domain.UserAccount{},
	}
}

func acctKey(tenantID, customerID string) string {
	return tenantID + "|" + customerID
}

// Seed helpers for tests and the dev server.

func (s *Store) SeedProduct(p domain.CatalogProduct) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) SeedTax(t domain.TaxRate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxes[t.ID] = t
}

func (s *Store) SeedLoyaltyProgram(p domain.LoyaltyProgram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[p.TenantID] = p
}

// Registers.

func (s *Store) CreateRegister(_ context.Context, reg domain.Register) (*domain.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[reg.ID] = reg
	out := reg
	return &out, nil
}

func (s *Store) ListRegisters(_ context.Context, tenantID string) ([]domain.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Register
	for _, reg := range s.registers {
		if reg.TenantID == tenantID {
			out = append(out, reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetRegister(_ context.Context, tenantID, registerID string) (*domain.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registers[registerID]
	if !ok || reg.TenantID != tenantID {
		return nil, fmt.Errorf("register %s: %w", registerID, store.ErrNotFound)
	}
	out := reg
	return &out, nil
}

func (s *Store) SetRegisterActive(_ context.Context, tenantID, registerID string, active bool) (*domain.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registers[registerID]
	if !ok || reg.TenantID != tenantID {
		return nil, fmt.Errorf("register %s: %w", registerID, store.ErrNotFound)
	}
	reg.IsActive = active
	s.registers[registerID] = reg
	out := reg
	return &out, nil
}

// Sessions.

func (s *Store) OpenSession(_ context.Context, session domain.RegisterSession, count *domain.CashCount) (*domain.RegisterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.sessions {
		if existing.TenantID == session.TenantID &&
			existing.RegisterID == session.RegisterID &&
			existing.Status == domain.SessionStatusOpen {
			return nil, fmt.Errorf("register %s already has an open session: %w", session.RegisterID, store.ErrConflict)
		}
	}
	s.sessions[session.ID] = session
	if count != nil {
		s.counts[session.ID] = append(s.counts[session.ID], *count)
	}
	out := session
	return &out, nil
}

func (s *Store) CloseSession(_ context.Context, tenantID, registerID string, closingCashCents int64, closedBy string, closedAt time.Time, count *domain.CashCount) (*domain.RegisterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if session.TenantID != tenantID || session.RegisterID != registerID ||
			session.Status != domain.SessionStatusOpen {
			continue
		}
		session.Status = domain.SessionStatusClosed
		session.ClosingCashCents = closingCashCents
		session.CashDifferenceCents = closingCashCents - session.ExpectedCashCents
		session.ClosedBy = closedBy
		t := closedAt
		session.ClosedAt = &t
		s.sessions[id] = session
		if count != nil {
			c := *count
			c.SessionID = id
			s.counts[id] = append(s.counts[id], c)
		}
		out := session
		return &out, nil
	}
	return nil, fmt.Errorf("no open session for register %s: %w", registerID, store.ErrNotFound)
}

func (s *Store) GetOpenSession(_ context.Context, tenantID, registerID string) (*domain.RegisterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, session := range s.sessions {
		if session.TenantID == tenantID && session.RegisterID == registerID &&
			session.Status == domain.SessionStatusOpen {
			out := session
			return &out, nil
		}
	}
	return nil, fmt.Errorf("no open session for register %s: %w", registerID, store.ErrNotFound)
}

func (s *Store) GetSession(_ context.Context, tenantID, sessionID string) (*domain.RegisterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return nil, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	out := session
	return &out, nil
}

// Cash ledger.

func (s *Store) RecordCashMovement(_ context.Context, movement domain.CashMovement) (*domain.CashMovement, *domain.RegisterSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[movement.SessionID]
	if !ok || session.TenantID != movement.TenantID {
		return nil, nil, fmt.Errorf("session %s: %w", movement.SessionID, store.ErrNotFound)
	}
	if session.Status != domain.SessionStatusOpen {
		return nil, nil, fmt.Errorf("session %s is closed: %w", movement.SessionID, store.ErrInvalidState)
	}
	delta := movement.AmountCents
	if movement.Type == domain.CashMovementPaidOut {
		delta = -delta
	}
	session.ExpectedCashCents += delta
	s.sessions[movement.SessionID] = session
	s.movements[movement.SessionID] = append(s.movements[movement.SessionID], movement)
	m := movement
	out := session
	return &m, &out, nil
}

func (s *Store) AdjustSessionCash(_ context.Context, tenantID, sessionID string, deltaCents int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return false, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	if session.Status != domain.SessionStatusOpen {
		// Closed drawers no longer track expected cash.
		return false, nil
	}
	session.ExpectedCashCents += deltaCents
	s.sessions[sessionID] = session
	return true, nil
}

func (s *Store) ListCashMovements(_ context.Context, tenantID, sessionID string) ([]domain.CashMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return nil, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}
	out := make([]domain.CashMovement, len(s.movements[sessionID]))
	copy(out, s.movements[sessionID])
	return out, nil
}

func (s *Store) SessionCashTotals(_ context.Context, tenantID, sessionID string) (int64, int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.TenantID != tenantID {
		return 0, 0, 0, fmt.Errorf("session %s: %w", sessionID, store.ErrNotFound)
	}

	var movementCents int64
	for _, m := range s.movements[sessionID] {
		if m.Type == domain.CashMovementPaidOut {
			movementCents -= m.AmountCents
		} else {
			movementCents += m.AmountCents
		}
	}

	var tendered, refunded int64
	for saleID, sale := range s.sales {
		if sale.TenantID != tenantID || sale.SessionID != sessionID ||
			sale.Status != domain.SaleStatusCompleted {
			continue
		}
		var cashPaid int64
		for _, p := range s.payments[saleID] {
			if p.Method == domain.PaymentMethodCash {
				cashPaid += p.AmountCents
			}
		}
		if cashPaid > 0 {
			tendered += cashPaid - sale.ChangeDueCents
		}
		for _, r := range s.refunds[saleID] {
			if r.PaymentMethod == domain.PaymentMethodCash {
				refunded += r.AmountCents
			}
		}
	}
	return movementCents, tendered, refunded, nil
}

// Catalog.

func (s *Store) GetCatalogProduct(_ context.Context, tenantID, productID string) (*domain.CatalogProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok || p.TenantID != tenantID {
		return nil, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	out := p
	return &out, nil
}

func (s *Store) GetTaxRate(_ context.Context, tenantID, taxID string) (*domain.TaxRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.taxes[taxID]
	if !ok || t.TenantID != tenantID {
		return nil, fmt.Errorf("tax %s: %w", taxID, store.ErrNotFound)
	}
	out := t
	return &out, nil
}

// Sales.

func (s *Store) CreateDraftSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sales[sale.ID] = sale
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) GetSale(_ context.Context, tenantID, saleID string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.TenantID != tenantID {
		return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
	}
	out := cloneSale(sale)
	return &out, nil
}

func (s *Store) FinalizeSale(_ context.Context, tenantID, saleID string, payments []domain.PaymentInput, receivedBy string, at time.Time) (*domain.Sale, *domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.TenantID != tenantID {
		return nil, nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
	}
	if sale.Status != domain.SaleStatusDraft {
		return nil, nil, fmt.Errorf("sale %s is %s: %w", saleID, sale.Status, store.ErrInvalidState)
	}

	var lineSubtotal int64
	for _, item := range sale.Items {
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
		s.payments[saleID] = append(s.payments[saleID], domain.Payment{
			ID:          xid.New("pay"),
			TenantID:    tenantID,
			SaleID:      saleID,
			Method:      p.Method,
			AmountCents: p.AmountCents,
			Reference:   p.Reference,
			ReceivedBy:  receivedBy,
			CreatedAt:   at,
		})
	}

	sale.Status = domain.SaleStatusCompleted
	sale.PaidCents = paid
	sale.ChangeDueCents = paid - sale.TotalCents
	t := at
	sale.CompletedAt = &t
	s.sales[saleID] = sale

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
	s.receipts[saleID] = receipt

	outSale := cloneSale(sale)
	outReceipt := receipt
	return &outSale, &outReceipt, nil
}

func (s *Store) GetReceipt(_ context.Context, tenantID, saleID string) (*domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[saleID]
	if !ok || r.TenantID != tenantID {
		return nil, fmt.Errorf("receipt for sale %s: %w", saleID, store.ErrNotFound)
	}
	out := r
	out.Payments = append([]domain.PaymentInput(nil), r.Payments...)
	return &out, nil
}

func (s *Store) ListPayments(_ context.Context, tenantID, saleID string) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.TenantID != tenantID {
		return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
	}
	out := make([]domain.Payment, len(s.payments[saleID]))
	copy(out, s.payments[saleID])
	return out, nil
}

// Refunds.

func (s *Store) CreateRefund(_ context.Context, tenantID, saleID string, lines []domain.RefundLineRequest, reason, paymentMethod, processedBy string) (*domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.TenantID != tenantID {
		return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
	}
	if sale.Status != domain.SaleStatusCompleted {
		return nil, fmt.Errorf("sale %s is %s: %w", saleID, sale.Status, store.ErrInvalidState)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("refund has no lines: %w", store.ErrInvalidArgument)
	}

	items := map[string]domain.SaleItem{}
	for _, item := range sale.Items {
		items[item.ID] = item
	}
	already := map[string]int{}
	for _, r := range s.refunds[saleID] {
		for _, it := range r.Items {
			already[it.SaleItemID] += it.Quantity
		}
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
		item, ok := items[line.SaleItemID]
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
		already[line.SaleItemID] = prior + line.Quantity
	}

	s.refunds[saleID] = append(s.refunds[saleID], refund)
	out := refund
	out.Items = append([]domain.RefundItem(nil), refund.Items...)
	return &out, nil
}

// prorate distributes a frozen line total across refunded quantities
// telescopically, so repeated partial refunds sum to exactly the line
// total once the quantity is exhausted.
func prorate(lineTotal int64, purchased, already, qty int) int64 {
	upper := lineTotal * int64(already+qty) / int64(purchased)
	lower := lineTotal * int64(already) / int64(purchased)
	return upper - lower
}

func (s *Store) RefundedQuantities(_ context.Context, tenantID, saleID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.TenantID != tenantID {
		return nil, fmt.Errorf("sale %s: %w", saleID, store.ErrNotFound)
	}
	out := map[string]int{}
	for _, r := range s.refunds[saleID] {
		for _, it := range r.Items {
			out[it.SaleItemID] += it.Quantity
		}
	}
	return out, nil
}

// Loyalty.

func (s *Store) GetLoyaltyProgram(_ context.Context, tenantID string) (*domain.LoyaltyProgram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programs[tenantID]
	if !ok {
		return nil, fmt.Errorf("loyalty program for tenant %s: %w", tenantID, store.ErrNotFound)
	}
	out := p
	return &out, nil
}

func (s *Store) SetLoyaltyProgram(_ context.Context, program domain.LoyaltyProgram) (*domain.LoyaltyProgram, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.programs[program.TenantID] = program
	out := program
	return &out, nil
}

func (s *Store) GetLoyaltyAccount(_ context.Context, tenantID, customerID string) (*domain.LoyaltyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[acctKey(tenantID, customerID)]
	if !ok {
		return nil, fmt.Errorf("loyalty account %s: %w", customerID, store.ErrNotFound)
	}
	out := acct
	return &out, nil
}

func (s *Store) IncrementLoyaltyPoints(_ context.Context, entry domain.LoyaltyEntry) (*domain.LoyaltyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := acctKey(entry.TenantID, entry.CustomerID)
	acct, ok := s.accounts[key]
	if !ok {
		acct = domain.LoyaltyAccount{
			TenantID:   entry.TenantID,
			CustomerID: entry.CustomerID,
			CreatedAt:  entry.CreatedAt,
		}
	}
	acct.PointsBalance += entry.PointsDelta
	acct.UpdatedAt = entry.CreatedAt
	s.accounts[key] = acct
	s.ledger[key] = append(s.ledger[key], entry)
	out := acct
	return &out, nil
}

func (s *Store) RedeemLoyaltyPoints(_ context.Context, entry domain.LoyaltyEntry) (*domain.LoyaltyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := acctKey(entry.TenantID, entry.CustomerID)
	points := -entry.PointsDelta
	acct, ok := s.accounts[key]
	if !ok || acct.PointsBalance < points {
		return nil, fmt.Errorf("customer %s cannot redeem %d points: %w",
			entry.CustomerID, points, store.ErrInsufficientBalance)
	}
	acct.PointsBalance -= points
	acct.UpdatedAt = entry.CreatedAt
	s.accounts[key] = acct
	s.ledger[key] = append(s.ledger[key], entry)
	out := acct
	return &out, nil
}

func (s *Store) ListLoyaltyEntries(_ context.Context, tenantID, customerID string, limit int) ([]domain.LoyaltyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.ledger[acctKey(tenantID, customerID)]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]domain.LoyaltyEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// Audit.

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, tenantID string, from, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditLog
	for _, entry := range s.audits {
		if entry.TenantID != tenantID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		out = append(out, entry)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// Staff.

func (s *Store) CreateEmployee(_ context.Context, emp domain.EmployeeProfile) (*domain.EmployeeProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
	out := emp
	return &out, nil
}

func (s *Store) ListEmployees(_ context.Context, tenantID string) ([]domain.EmployeeProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.EmployeeProfile
	for _, emp := range s.employees {
		if emp.TenantID == tenantID {
			out = append(out, emp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ClockIn(_ context.Context, entry domain.TimeClockEntry) (*domain.TimeClockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	emp, ok := s.employees[entry.EmployeeID]
	if !ok || emp.TenantID != entry.TenantID {
		return nil, fmt.Errorf("employee %s: %w", entry.EmployeeID, store.ErrNotFound)
	}
	for _, existing := range s.timeclock {
		if existing.TenantID == entry.TenantID && existing.EmployeeID == entry.EmployeeID &&
			existing.ClockOut == nil {
			return nil, fmt.Errorf("employee %s is already clocked in: %w", entry.EmployeeID, store.ErrConflict)
		}
	}
	s.timeclock[entry.ID] = entry
	out := entry
	return &out, nil
}

func (s *Store) ClockOut(_ context.Context, tenantID, employeeID string, at time.Time) (*domain.TimeClockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.timeclock {
		if entry.TenantID == tenantID && entry.EmployeeID == employeeID && entry.ClockOut == nil {
			t := at
			entry.ClockOut = &t
			s.timeclock[id] = entry
			out := entry
			return &out, nil
		}
	}
	return nil, fmt.Errorf("employee %s has no open time entry: %w", employeeID, store.ErrNotFound)
}

func (s *Store) ListTimeClockEntries(_ context.Context, tenantID string, from, to time.Time) ([]domain.TimeClockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TimeClockEntry
	for _, entry := range s.timeclock {
		if entry.TenantID != tenantID {
			continue
		}
		if !from.IsZero() && entry.ClockIn.Before(from) {
			continue
		}
		if !to.IsZero() && entry.ClockIn.After(to) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockIn.Before(out[j].ClockIn) })
	return out, nil
}

// Users.

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return fmt.Errorf("user %s: %w", user.Username, store.ErrConflict)
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.UserAccount
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return fmt.Errorf("user %s: %w", username, store.ErrNotFound)
	}
	user.Password = password
	s.users[username] = user
	return nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	out.Items = append([]domain.SaleItem(nil), sale.Items...)
	return out
}
