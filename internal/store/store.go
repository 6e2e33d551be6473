package store

import (
	"context"
	"errors"
	"time"

	"tillpoint/backend/internal/domain"
)

// Error taxonomy surfaced by every repository implementation. Domain-rule
// violations are expected outcomes; ErrInconsistent signals a broken
// internal invariant and is never shown to callers verbatim.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInconsistent        = errors.New("inconsistent state")
	ErrUnavailable         = errors.New("unavailable")
)

// Repository is the tenant-scoped persistence boundary. Every method
// takes the tenant explicitly (or embedded in the record being written),
// so a query that forgets tenant scoping cannot be expressed. All
// mutual exclusion is datastore-level: conditional updates and
// transactions, never in-process locks shared across requests.
type Repository interface {
	// Registers.
	CreateRegister(ctx context.Context, reg domain.Register) (*domain.Register, error)
	ListRegisters(ctx context.Context, tenantID string) ([]domain.Register, error)
	GetRegister(ctx context.Context, tenantID string, registerID string) (*domain.Register, error)
	SetRegisterActive(ctx context.Context, tenantID string, registerID string, active bool) (*domain.Register, error)

	// Register sessions. OpenSession is a single guarded
	// check-and-insert: a second open for the same register must fail
	// with ErrConflict, never create a second open session.
	OpenSession(ctx context.Context, session domain.RegisterSession, count *domain.CashCount) (*domain.RegisterSession, error)
	CloseSession(ctx context.Context, tenantID string, registerID string, closingCashCents int64, closedBy string, closedAt time.Time, count *domain.CashCount) (*domain.RegisterSession, error)
	GetOpenSession(ctx context.Context, tenantID string, registerID string) (*domain.RegisterSession, error)
	GetSession(ctx context.Context, tenantID string, sessionID string) (*domain.RegisterSession, error)

	// Cash ledger. RecordCashMovement appends the movement and applies
	// its signed effect to expected cash in one transaction.
	// AdjustSessionCash is the low-level signed increment used for
	// cash-tendered payment/refund effects; it reports false without
	// error when the session is already closed.
	RecordCashMovement(ctx context.Context, movement domain.CashMovement) (*domain.CashMovement, *domain.RegisterSession, error)
	AdjustSessionCash(ctx context.Context, tenantID string, sessionID string, deltaCents int64) (bool, error)
	ListCashMovements(ctx context.Context, tenantID string, sessionID string) ([]domain.CashMovement, error)
	SessionCashTotals(ctx context.Context, tenantID string, sessionID string) (movementCents int64, cashTenderedCents int64, cashRefundedCents int64, err error)

	// Catalog reads (consumed collaborator, backed by the same store).
	GetCatalogProduct(ctx context.Context, tenantID string, productID string) (*domain.CatalogProduct, error)
	GetTaxRate(ctx context.Context, tenantID string, taxID string) (*domain.TaxRate, error)

	// Sales. FinalizeSale is one transaction: consistency check,
	// payments, completion fields and exactly one receipt, or nothing
	// at all.
	CreateDraftSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, tenantID string, saleID string) (*domain.Sale, error)
	FinalizeSale(ctx context.Context, tenantID string, saleID string, payments []domain.PaymentInput, receivedBy string, at time.Time) (*domain.Sale, *domain.Receipt, error)
	GetReceipt(ctx context.Context, tenantID string, saleID string) (*domain.Receipt, error)
	ListPayments(ctx context.Context, tenantID string, saleID string) ([]domain.Payment, error)

	// Refunds. CreateRefund validates requested quantities against
	// purchased minus already-refunded and prorates amounts from the
	// frozen line totals, all inside one transaction.
	CreateRefund(ctx context.Context, tenantID string, saleID string, lines []domain.RefundLineRequest, reason string, paymentMethod string, processedBy string) (*domain.Refund, error)
	RefundedQuantities(ctx context.Context, tenantID string, saleID string) (map[string]int, error)

	// Loyalty. IncrementLoyaltyPoints is an unconditional signed
	// increment (account created on first use); RedeemLoyaltyPoints is
	// a single conditional decrement that fails with
	// ErrInsufficientBalance instead of racing. Both append the ledger
	// entry atomically with the balance change.
	GetLoyaltyProgram(ctx context.Context, tenantID string) (*domain.LoyaltyProgram, error)
	SetLoyaltyProgram(ctx context.Context, program domain.LoyaltyProgram) (*domain.LoyaltyProgram, error)
	GetLoyaltyAccount(ctx context.Context, tenantID string, customerID string) (*domain.LoyaltyAccount, error)
	IncrementLoyaltyPoints(ctx context.Context, entry domain.LoyaltyEntry) (*domain.LoyaltyAccount, error)
	RedeemLoyaltyPoints(ctx context.Context, entry domain.LoyaltyEntry) (*domain.LoyaltyAccount, error)
	ListLoyaltyEntries(ctx context.Context, tenantID string, customerID string, limit int) ([]domain.LoyaltyEntry, error)

	// Audit.
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, tenantID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	// Staff time clock (payroll read model).
	CreateEmployee(ctx context.Context, emp domain.EmployeeProfile) (*domain.EmployeeProfile, error)
	ListEmployees(ctx context.Context, tenantID string) ([]domain.EmployeeProfile, error)
	ClockIn(ctx context.Context, entry domain.TimeClockEntry) (*domain.TimeClockEntry, error)
	ClockOut(ctx context.Context, tenantID string, employeeID string, at time.Time) (*domain.TimeClockEntry, error)
	ListTimeClockEntries(ctx context.Context, tenantID string, from time.Time, to time.Time) ([]domain.TimeClockEntry, error)

	// Auth credentials.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
