package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/services/export"
	"github.com/upb/membership-backend/utils"
	"go.uber.org/zap"
)

// AccountingService is the part of services.AccountingService the HTTP layer needs
type AccountingService interface {
	List(ctx context.Context, actor *models.User, q services.TransactionQuery) ([]*models.AccountingTransaction, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*models.AccountingTransaction, error)
	Create(ctx context.Context, actor *models.User, in services.TransactionInput) (*models.AccountingTransaction, error)
	Update(ctx context.Context, actor *models.User, id uuid.UUID, in services.TransactionUpdate) (*models.AccountingTransaction, error)
	Delete(ctx context.Context, actor *models.User, id uuid.UUID) error
}

// ReportService is the part of services.ReportService the HTTP layer needs
type ReportService interface {
	ExportTransactions(ctx context.Context, actor *models.User, from, to *time.Time, format export.Format, w io.Writer) error
	CategoryChart(ctx context.Context, actor *models.User, year int, month *int) (map[string]*models.IncomeExpense, error)
	MonthlyChart(ctx context.Context, actor *models.User, year int) (map[string]*models.IncomeExpense, error)
	Summary(ctx context.Context, actor *models.User, from, to *time.Time) (*services.Summary, error)
}

// CreateTransactionRequest represents the request body for a ledger line
type CreateTransactionRequest struct {
	OrgID       *uuid.UUID `json:"org_id,omitempty"`
	Date        string     `json:"date" validate:"required,datetime=2006-01-02"`
	Category    string     `json:"category" validate:"required,max=100"`
	Description *string    `json:"description,omitempty"`
	Amount      float64    `json:"amount" validate:"gt=0"`
	Account     string     `json:"account" validate:"required,max=100"`
	Type        string     `json:"type" validate:"required,oneof=income expense"`
}

// UpdateTransactionRequest represents the request body for changing a ledger line
type UpdateTransactionRequest struct {
	Date        *string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category    *string  `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Account     *string  `json:"account,omitempty" validate:"omitempty,min=1,max=100"`
	Type        *string  `json:"type,omitempty" validate:"omitempty,oneof=income expense"`
}

// AccountingHandler handles ledger and report HTTP requests
type AccountingHandler struct {
	txns    AccountingService
	reports ReportService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAccountingHandler creates a new AccountingHandler
func NewAccountingHandler(txns AccountingService, reports ReportService, logger *zap.Logger) *AccountingHandler {
	return &AccountingHandler{txns: txns, reports: reports, logger: logger, now: time.Now}
}

// HandleList handles GET /accounting/transactions
func (h *AccountingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}
	skip, err := utils.QueryInt(r, "skip", 0)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	limit, err := utils.QueryInt(r, "limit", services.DefaultPageLimit)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	q := r.URL.Query()
	typ := models.TransactionType(q.Get("type"))
	if typ != "" && !typ.Valid() {
		utils.WriteBadRequest(w, "invalid type: expected income or expense", nil)
		return
	}

	txns, err := h.txns.List(r.Context(), currentUser(r), services.TransactionQuery{
		Account:  q.Get("account"),
		Category: q.Get("category"),
		Type:     typ,
		From:     from,
		To:       to,
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, txns, h.logger)
}

// HandleCreate handles POST /accounting/transactions
func (h *AccountingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	date, err := utils.ParseDate("date", req.Date)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	txn, err := h.txns.Create(r.Context(), currentUser(r), services.TransactionInput{
		OrgID:       req.OrgID,
		Date:        date,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Account:     req.Account,
		Type:        models.TransactionType(req.Type),
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, txn, h.logger)
}

// HandleGet handles GET /accounting/transactions/{id}
func (h *AccountingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	txn, err := h.txns.Get(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, txn, h.logger)
}

// HandleUpdate handles PUT /accounting/transactions/{id}
func (h *AccountingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req UpdateTransactionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	date, err := utils.ParseOptionalDate("date", req.Date)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var typ *models.TransactionType
	if req.Type != nil {
		t := models.TransactionType(*req.Type)
		typ = &t
	}

	txn, err := h.txns.Update(r.Context(), currentUser(r), id, services.TransactionUpdate{
		Date:        date,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Account:     req.Account,
		Type:        typ,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, txn, h.logger)
}

// HandleDelete handles DELETE /accounting/transactions/{id}
func (h *AccountingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	if err := h.txns.Delete(r.Context(), currentUser(r), id); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleExport handles GET /reports/transactions/export
func (h *AccountingHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}

	writeExport(w, r, h.logger, "transactions", "", func(format export.Format, out io.Writer) error {
		return h.reports.ExportTransactions(r.Context(), currentUser(r), from, to, format, out)
	})
}

// HandleCategoryChart handles GET /reports/charts/category
func (h *AccountingHandler) HandleCategoryChart(w http.ResponseWriter, r *http.Request) {
	year, err := utils.QueryInt(r, "year", h.now().Year())
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	month, err := utils.QueryIntPtr(r, "month")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	chart, err := h.reports.CategoryChart(r.Context(), currentUser(r), year, month)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, chart, h.logger)
}

// HandleMonthlyChart handles GET /reports/charts/monthly
func (h *AccountingHandler) HandleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	year, err := utils.QueryInt(r, "year", h.now().Year())
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	chart, err := h.reports.MonthlyChart(r.Context(), currentUser(r), year)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, chart, h.logger)
}

// HandleSummary handles GET /reports/charts/summary
func (h *AccountingHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.period(w, r)
	if !ok {
		return
	}

	summary, err := h.reports.Summary(r.Context(), currentUser(r), from, to)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, summary, h.logger)
}

func (h *AccountingHandler) period(w http.ResponseWriter, r *http.Request) (from, to *time.Time, ok bool) {
	from, err := utils.QueryDate(r, "from")
	if err != nil {
		badRequest(w, err, h.logger)
		return nil, nil, false
	}
	to, err = utils.QueryDate(r, "to")
	if err != nil {
		badRequest(w, err, h.logger)
		return nil, nil, false
	}
	return from, to, true
}
