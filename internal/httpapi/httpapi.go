// Package httpapi is the HTTP surface: a chi router over the service
// layer, bearer-token auth, and the mapping from domain errors to
// status codes. Handlers never read a tenant from the request; the
// actor parsed from the token carries it.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/service"
	"tillpoint/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	log           *zap.Logger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{service: svc, auth: auth, allowedOrigin: allowedOrigin, log: log}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{a.allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Route("/registers", func(r chi.Router) {
				r.Get("/", a.handleListRegisters)
				r.Post("/", a.handleCreateRegister)
				r.Post("/{id}/activate", a.handleRegisterActive(true))
				r.Post("/{id}/deactivate", a.handleRegisterActive(false))
				r.Post("/{id}/sessions/open", a.handleOpenSession)
				r.Post("/{id}/sessions/close", a.handleCloseSession)
				r.Get("/{id}/sessions/open", a.handleGetOpenSession)
			})

			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Post("/movements", a.handleRecordMovement)
				r.Get("/movements", a.handleListMovements)
				r.Get("/reconciliation", a.handleReconciliation)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Post("/", a.handleCreateSale)
				r.Get("/{id}", a.handleGetSale)
				r.Get("/{id}/receipt", a.handleGetReceipt)
				r.Post("/{id}/finalize", a.handleFinalizeSale)
				r.Post("/{id}/refunds", a.handleRefundSale)
			})

			r.Route("/loyalty", func(r chi.Router) {
				r.Put("/program", a.handleSetLoyaltyProgram)
				r.Get("/accounts/{customer}", a.handleGetLoyaltyAccount)
				r.Get("/accounts/{customer}/ledger", a.handleListLoyaltyEntries)
				r.Post("/earn", a.handleEarnPoints)
				r.Post("/redeem", a.handleRedeemPoints)
				r.Post("/adjust", a.handleAdjustPoints)
			})

			r.Route("/employees", func(r chi.Router) {
				r.Get("/", a.handleListEmployees)
				r.Post("/", a.handleCreateEmployee)
			})
			r.Post("/timeclock/in", a.handleClockIn)
			r.Post("/timeclock/out", a.handleClockOut)
			r.Get("/payroll/summary", a.handlePayrollSummary)

			r.Get("/audit-logs", a.handleListAuditLogs)
		})
	})

	return r
}

// requireAuth parses the bearer token and installs the resulting actor
// into the request context for the service layer.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		actor, err := a.auth.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Registers.

func (a *API) handleCreateRegister(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reg, err := a.service.CreateRegister(r.Context(), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (a *API) handleListRegisters(w http.ResponseWriter, r *http.Request) {
	registers, err := a.service.ListRegisters(r.Context())
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registers)
}

func (a *API) handleRegisterActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reg, err := a.service.SetRegisterActive(r.Context(), chi.URLParam(r, "id"), active)
		if err != nil {
			a.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, reg)
	}
}

// Sessions.

func (a *API) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := a.service.OpenRegisterSession(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	var req domain.SessionCloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := a.service.CloseRegisterSession(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleGetOpenSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.service.GetOpenSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleRecordMovement(w http.ResponseWriter, r *http.Request) {
	var req domain.CashMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	movement, session, err := a.service.RecordCashMovement(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"movement": movement, "session": session})
}

func (a *API) handleListMovements(w http.ResponseWriter, r *http.Request) {
	movements, err := a.service.ListCashMovements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

func (a *API) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	rec, err := a.service.SessionReconciliation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Sales.

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sale, err := a.service.CreateDraftSale(r.Context(), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.service.GetSaleReceipt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (a *API) handleFinalizeSale(w http.ResponseWriter, r *http.Request) {
	var req domain.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := a.service.FinalizeSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRefundSale(w http.ResponseWriter, r *http.Request) {
	var req domain.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := a.service.RefundSale(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Loyalty.

func (a *API) handleSetLoyaltyProgram(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active   bool    `json:"active"`
		EarnRate float64 `json:"earn_rate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	program, err := a.service.SetLoyaltyProgram(r.Context(), req.Active, req.EarnRate)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

func (a *API) handleGetLoyaltyAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := a.service.GetLoyaltyAccount(r.Context(), chi.URLParam(r, "customer"))
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (a *API) handleListLoyaltyEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := a.service.ListLoyaltyEntries(r.Context(), chi.URLParam(r, "customer"), limit)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleEarnPoints(w http.ResponseWriter, r *http.Request) {
	var req domain.LoyaltyEarnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := a.service.EarnPoints(r.Context(), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req domain.LoyaltyRedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := a.service.RedeemPoints(r.Context(), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req domain.LoyaltyAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := a.service.AdjustPoints(r.Context(), req)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Staff.

func (a *API) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		HourlyRateCents int64  `json:"hourly_rate_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	emp, err := a.service.CreateEmployee(r.Context(), req.Name, req.HourlyRateCents)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (a *API) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := a.service.ListEmployees(r.Context())
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (a *API) handleClockIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entry, err := a.service.ClockIn(r.Context(), req.EmployeeID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleClockOut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	entry, err := a.service.ClockOut(r.Context(), req.EmployeeID)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (a *API) handlePayrollSummary(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := a.service.PayrollSummary(r.Context(), from, to)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := a.service.ListAuditLogs(r.Context(), from, to, limit)
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Helpers.

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, errors.New("from must be RFC3339")
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return from, to, errors.New("to must be RFC3339")
		}
		to = parsed
	}
	return from, to, nil
}

// writeDomainError maps the error taxonomy to status codes. Internal
// inconsistencies get a generic body; the detail goes to the log only.
func (a *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrInvalidState),
		errors.Is(err, store.ErrInsufficientBalance):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "dependency unavailable")
	default:
		a.log.Error("internal error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
