package domain

import "time"

// Actor is the authenticated caller resolved by the identity layer.
// TenantID is the scoping boundary for every operation; it is never
// taken from a request payload.
type Actor struct {
	TenantID string
	UserID   string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TenantID    string `json:"tenant_id"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	TenantID  string
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// CatalogProduct is the shape the catalog collaborator returns for a
// tenant's product: base price, tax associations and the active flag.
type CatalogProduct struct {
	TenantID   string   `json:"tenant_id"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	PriceCents int64    `json:"price_cents"`
	TaxIDs     []string `json:"tax_ids"`
	Active     bool     `json:"active"`
}

// TaxRate is a flat basis-point rate. Inclusive rates are back-calculated
// out of the taxable amount instead of added on top.
type TaxRate struct {
	TenantID  string `json:"tenant_id"`
	ID        string `json:"id"`
	Name      string `json:"name"`
	RateBps   int64  `json:"rate_bps"`
	Inclusive bool   `json:"inclusive"`
}

type Register struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	LocationID string    `json:"location_id"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

type RegisterCreateRequest struct {
	Name       string `json:"name"`
	LocationID string `json:"location_id"`
}

const (
	SessionStatusOpen   = "open"
	SessionStatusClosed = "closed"
)

type RegisterSession struct {
	ID                 string     `json:"id"`
	TenantID           string     `json:"tenant_id"`
	RegisterID         string     `json:"register_id"`
	OpenedBy           string     `json:"opened_by"`
	ClosedBy           string     `json:"closed_by,omitempty"`
	Status             string     `json:"status"`
	OpeningCashCents   int64      `json:"opening_cash_cents"`
	ExpectedCashCents  int64      `json:"expected_cash_cents"`
	ClosingCashCents   int64      `json:"closing_cash_cents"`
	CashDifferenceCents int64     `json:"cash_difference_cents"`
	OpenedAt           time.Time  `json:"opened_at"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

type SessionOpenRequest struct {
	OpeningCashCents int64            `json:"opening_cash_cents"`
	Denominations    []DenominationCount `json:"denominations,omitempty"`
}

type SessionCloseRequest struct {
	ClosingCashCents int64            `json:"closing_cash_cents"`
	Denominations    []DenominationCount `json:"denominations,omitempty"`
}

// DenominationCount is one row of a physical cash count.
type DenominationCount struct {
	DenominationCents int64 `json:"denomination_cents"`
	Count             int   `json:"count"`
}

const (
	CashCountKindOpening = "opening"
	CashCountKindClosing = "closing"
)

// CashCount is an informational snapshot of counted denominations; it
// never drives balances.
type CashCount struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"`
	SessionID     string              `json:"session_id"`
	Kind          string              `json:"kind"`
	Denominations []DenominationCount `json:"denominations"`
	CountedBy     string              `json:"counted_by"`
	CountedAt     time.Time           `json:"counted_at"`
}

const (
	CashMovementPaidIn  = "paid_in"
	CashMovementPaidOut = "paid_out"
)

// CashMovement is an append-only record of a manual cash in/out against
// an open session. Never mutated or deleted after creation.
type CashMovement struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SessionID   string    `json:"session_id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Reason      string    `json:"reason"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type CashMovementRequest struct {
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
}

const (
	SaleStatusDraft     = "draft"
	SaleStatusCompleted = "completed"
)

const (
	FulfillmentStatusPending   = "pending"
	FulfillmentStatusFulfilled = "fulfilled"
)

type Sale struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	Status            string     `json:"status"`
	LocationID        string     `json:"location_id,omitempty"`
	RegisterID        string     `json:"register_id,omitempty"`
	SessionID         string     `json:"session_id,omitempty"`
	CashierID         string     `json:"cashier_id"`
	CustomerID        string     `json:"customer_id,omitempty"`
	SubtotalCents     int64      `json:"subtotal_cents"`
	DiscountCents     int64      `json:"discount_cents"`
	TaxCents          int64      `json:"tax_cents"`
	ShippingCents     int64      `json:"shipping_cents"`
	TotalCents        int64      `json:"total_cents"`
	PaidCents         int64      `json:"paid_cents"`
	ChangeDueCents    int64      `json:"change_due_cents"`
	FulfillmentStatus string     `json:"fulfillment_status"`
	CreatedAt         time.Time  `json:"created_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Items             []SaleItem `json:"items,omitempty"`
}

// SaleItem freezes unit and line amounts at the time of sale so that
// historical totals are immune to later catalog price changes.
type SaleItem struct {
	ID                string `json:"id"`
	TenantID          string `json:"tenant_id"`
	SaleID            string `json:"sale_id"`
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	Quantity          int    `json:"quantity"`
	UnitPriceCents    int64  `json:"unit_price_cents"`
	UnitDiscountCents int64  `json:"unit_discount_cents"`
	LineSubtotalCents int64  `json:"line_subtotal_cents"`
	LineDiscountCents int64  `json:"line_discount_cents"`
	LineTaxCents      int64  `json:"line_tax_cents"`
	LineTotalCents    int64  `json:"line_total_cents"`
}

// DiscountSpec is either a flat amount or a basis-point percentage;
// exactly one side should be set.
type DiscountSpec struct {
	AmountCents int64 `json:"amount_cents,omitempty"`
	RateBps     int64 `json:"rate_bps,omitempty"`
}

type SaleLineRequest struct {
	ProductID string        `json:"product_id"`
	Quantity  int           `json:"quantity"`
	Discount  *DiscountSpec `json:"discount,omitempty"`
	TaxIDs    []string      `json:"tax_ids,omitempty"`
}

type SaleCreateRequest struct {
	RegisterID   string            `json:"register_id,omitempty"`
	LocationID   string            `json:"location_id,omitempty"`
	CustomerID   string            `json:"customer_id,omitempty"`
	Lines        []SaleLineRequest `json:"lines"`
	SaleDiscount *DiscountSpec     `json:"sale_discount,omitempty"`
	ShippingCents int64            `json:"shipping_cents"`
}

const (
	PaymentMethodCash = "cash"
	PaymentMethodCard = "card"
	PaymentMethodOther = "other"
)

type Payment struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	SaleID      string    `json:"sale_id"`
	Method      string    `json:"method"`
	AmountCents int64     `json:"amount_cents"`
	Reference   string    `json:"reference,omitempty"`
	ReceivedBy  string    `json:"received_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaymentInput struct {
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference,omitempty"`
}

// Receipt is generated exactly once per finalized sale and carries the
// totals and payment breakdown as of finalization.
type Receipt struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	SaleID         string    `json:"sale_id"`
	Number         string    `json:"number"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	DiscountCents  int64     `json:"discount_cents"`
	TaxCents       int64     `json:"tax_cents"`
	ShippingCents  int64     `json:"shipping_cents"`
	TotalCents     int64     `json:"total_cents"`
	PaidCents      int64     `json:"paid_cents"`
	ChangeDueCents int64     `json:"change_due_cents"`
	Payments       []PaymentInput `json:"payments"`
	IssuedAt       time.Time `json:"issued_at"`
}

type FinalizeRequest struct {
	Payments []PaymentInput `json:"payments"`
}

// FinalizeResponse reports the committed sale plus the outcome of the
// best-effort side effects (drawer adjustment, loyalty accrual).
type FinalizeResponse struct {
	Sale          Sale    `json:"sale"`
	Receipt       Receipt `json:"receipt"`
	PointsEarned  int64   `json:"points_earned"`
	CashAdjusted  bool    `json:"cash_adjusted"`
	SideEffectErr string  `json:"side_effect_error,omitempty"`
}

type Refund struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	SaleID        string       `json:"sale_id"`
	Reason        string       `json:"reason"`
	AmountCents   int64        `json:"amount_cents"`
	PaymentMethod string       `json:"payment_method"`
	ProcessedBy   string       `json:"processed_by"`
	CreatedAt     time.Time    `json:"created_at"`
	Items         []RefundItem `json:"items"`
}

type RefundItem struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	RefundID    string `json:"refund_id"`
	SaleItemID  string `json:"sale_item_id"`
	Quantity    int    `json:"quantity"`
	AmountCents int64  `json:"amount_cents"`
	Restock     bool   `json:"restock"`
}

type RefundLineRequest struct {
	SaleItemID string `json:"sale_item_id"`
	Quantity   int    `json:"quantity"`
	Restock    bool   `json:"restock"`
}

type RefundRequest struct {
	Items         []RefundLineRequest `json:"items"`
	Reason        string              `json:"reason"`
	PaymentMethod string              `json:"payment_method,omitempty"`
}

type RefundResponse struct {
	Refund         Refund `json:"refund"`
	// RefundedQuantities is the cumulative refunded quantity per sale
	// item after this refund, including earlier refunds.
	RefundedQuantities map[string]int `json:"refunded_quantities,omitempty"`
	PointsReversed     int64          `json:"points_reversed"`
	CashAdjusted       bool           `json:"cash_adjusted"`
	SideEffectErr      string         `json:"side_effect_error,omitempty"`
}

type LoyaltyProgram struct {
	TenantID string  `json:"tenant_id"`
	Active   bool    `json:"active"`
	// EarnRate is points granted per major currency unit spent.
	EarnRate float64 `json:"earn_rate"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LoyaltyAccount struct {
	TenantID      string    `json:"tenant_id"`
	CustomerID    string    `json:"customer_id"`
	PointsBalance int64     `json:"points_balance"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	LoyaltyReasonEarn   = "earn"
	LoyaltyReasonRedeem = "redeem"
	LoyaltyReasonAdjust = "adjust"
)

// LoyaltyEntry is append-only; the sum of all entries for an account
// equals its current balance at all times.
type LoyaltyEntry struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	CustomerID  string    `json:"customer_id"`
	PointsDelta int64     `json:"points_delta"`
	Reason      string    `json:"reason"`
	Note        string    `json:"note,omitempty"`
	SaleID      string    `json:"sale_id,omitempty"`
	RecordedBy  string    `json:"recorded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type LoyaltyEarnRequest struct {
	CustomerID       string `json:"customer_id"`
	AmountSpentCents int64  `json:"amount_spent_cents"`
	SaleID           string `json:"sale_id,omitempty"`
}

type LoyaltyRedeemRequest struct {
	CustomerID string `json:"customer_id"`
	Points     int64  `json:"points"`
	SaleID     string `json:"sale_id,omitempty"`
}

type LoyaltyAdjustRequest struct {
	CustomerID  string `json:"customer_id"`
	PointsDelta int64  `json:"points_delta"`
	Reason      string `json:"reason"`
}

type LoyaltyMutationResponse struct {
	CustomerID    string `json:"customer_id"`
	PointsDelta   int64  `json:"points_delta"`
	PointsBalance int64  `json:"points_balance"`
}

type AuditLog struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

type EmployeeProfile struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Name            string    `json:"name"`
	HourlyRateCents int64     `json:"hourly_rate_cents"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

type TimeClockEntry struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	EmployeeID string     `json:"employee_id"`
	ClockIn    time.Time  `json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out,omitempty"`
}

type PayrollLine struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeName  string `json:"employee_name"`
	MinutesWorked int64  `json:"minutes_worked"`
	WageCents     int64  `json:"wage_cents"`
}

type PayrollSummary struct {
	TenantID string        `json:"tenant_id"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Lines    []PayrollLine `json:"lines"`
}

// SessionReconciliation recomputes a session's expected cash from its
// primary records and reports any drift against the stored running
// total. It exists to make the best-effort finalize window observable.
type SessionReconciliation struct {
	SessionID             string `json:"session_id"`
	Status                string `json:"status"`
	OpeningCashCents      int64  `json:"opening_cash_cents"`
	MovementCents         int64  `json:"movement_cents"`
	CashTenderedCents     int64  `json:"cash_tendered_cents"`
	CashRefundedCents     int64  `json:"cash_refunded_cents"`
	RecomputedExpectedCents int64 `json:"recomputed_expected_cents"`
	StoredExpectedCents   int64  `json:"stored_expected_cents"`
	DriftCents            int64  `json:"drift_cents"`
}
