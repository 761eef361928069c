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

// SubscriptionService is the part of services.SubscriptionService the HTTP layer needs
type SubscriptionService interface {
	Create(ctx context.Context, actor *models.User, in services.SubscriptionInput) (*models.Subscription, error)
	Get(ctx context.Context, actor *models.User, id uuid.UUID) (*services.SubscriptionDetail, error)
	Renew(ctx context.Context, actor *models.User, id uuid.UUID, newEnd time.Time) (*models.Subscription, error)
	Cancel(ctx context.Context, actor *models.User, id uuid.UUID) (*models.Subscription, error)
	ListByMember(ctx context.Context, actor *models.User, memberID uuid.UUID) ([]*models.Subscription, error)
	ListByOrg(ctx context.Context, actor *models.User, orgID uuid.UUID, status *models.SubscriptionStatus) ([]*models.Subscription, error)
	Aggregate(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.SubscriptionAggregate, error)
	Export(ctx context.Context, actor *models.User, orgID uuid.UUID, format export.Format, w io.Writer) error
}

// PaymentService is the part of services.PaymentService the HTTP layer needs
type PaymentService interface {
	Record(ctx context.Context, actor *models.User, in services.PaymentInput) (*models.Payment, error)
	UpdateStatus(ctx context.Context, actor *models.User, id uuid.UUID, status models.PaymentStatus) (*models.Payment, error)
	ListByMember(ctx context.Context, actor *models.User, memberID uuid.UUID) ([]*models.Payment, error)
	ListBySubscription(ctx context.Context, actor *models.User, subscriptionID uuid.UUID) ([]*models.Payment, error)
	ListByOrg(ctx context.Context, actor *models.User, orgID uuid.UUID) ([]*models.Payment, error)
	Aggregate(ctx context.Context, actor *models.User, orgID uuid.UUID) (*models.PaymentAggregate, error)
	Export(ctx context.Context, actor *models.User, orgID uuid.UUID, format export.Format, w io.Writer) error
}

// CreateSubscriptionRequest represents the request body for creating a subscription
type CreateSubscriptionRequest struct {
	MemberID  uuid.UUID `json:"member_id" validate:"required"`
	StartDate string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string    `json:"end_date" validate:"required,datetime=2006-01-02"`
	Amount    float64   `json:"amount" validate:"gte=0"`
	Status    string    `json:"status,omitempty" validate:"omitempty,oneof=active pending overdue cancelled"`
}

// RenewSubscriptionRequest extends a subscription
type RenewSubscriptionRequest struct {
	NewEndDate string `json:"new_end_date" validate:"required,datetime=2006-01-02"`
}

// CreatePaymentRequest represents the request body for recording a payment
type CreatePaymentRequest struct {
	MemberID       uuid.UUID `json:"member_id" validate:"required"`
	SubscriptionID uuid.UUID `json:"subscription_id" validate:"required"`
	Amount         float64   `json:"amount" validate:"gt=0"`
	PaymentDate    *string   `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Method         string    `json:"method" validate:"required,max=50"`
	Status         string    `json:"status,omitempty" validate:"omitempty,oneof=success pending failed"`
	Reference      *string   `json:"reference,omitempty" validate:"omitempty,max=100"`
}

// PaymentStatusRequest changes a payment's status
type PaymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=success pending failed"`
}

// BillingHandler handles subscription and payment HTTP requests
type BillingHandler struct {
	subs     SubscriptionService
	payments PaymentService
	logger   *zap.Logger
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(subs SubscriptionService, payments PaymentService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{subs: subs, payments: payments, logger: logger}
}

// HandleCreateSubscription handles POST /subscriptions
func (h *BillingHandler) HandleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	start, err := utils.ParseDate("start_date", req.StartDate)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	end, err := utils.ParseDate("end_date", req.EndDate)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	sub, err := h.subs.Create(r.Context(), currentUser(r), services.SubscriptionInput{
		MemberID:  req.MemberID,
		StartDate: start,
		EndDate:   end,
		Amount:    req.Amount,
		Status:    models.SubscriptionStatus(req.Status),
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, sub, h.logger)
}

// HandleGetSubscription handles GET /subscriptions/{id}
func (h *BillingHandler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	detail, err := h.subs.Get(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, detail, h.logger)
}

// HandleRenewSubscription handles POST /subscriptions/{id}/renew
func (h *BillingHandler) HandleRenewSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req RenewSubscriptionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	end, err := utils.ParseDate("new_end_date", req.NewEndDate)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	sub, err := h.subs.Renew(r.Context(), currentUser(r), id, end)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, sub, h.logger)
}

// HandleCancelSubscription handles POST /subscriptions/{id}/cancel
func (h *BillingHandler) HandleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	sub, err := h.subs.Cancel(r.Context(), currentUser(r), id)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, sub, h.logger)
}

// HandleMemberSubscriptions handles GET /subscriptions/member/{member_id}
func (h *BillingHandler) HandleMemberSubscriptions(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	subs, err := h.subs.ListByMember(r.Context(), currentUser(r), memberID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, subs, h.logger)
}

// HandleOrgSubscriptions handles GET /subscriptions/org/{org_id}
func (h *BillingHandler) HandleOrgSubscriptions(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var status *models.SubscriptionStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.SubscriptionStatus(raw)
		status = &s
	}

	subs, err := h.subs.ListByOrg(r.Context(), currentUser(r), orgID, status)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, subs, h.logger)
}

// HandleSubscriptionAggregate handles GET /subscriptions/org/{org_id}/aggregate
func (h *BillingHandler) HandleSubscriptionAggregate(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	agg, err := h.subs.Aggregate(r.Context(), currentUser(r), orgID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, agg, h.logger)
}

// HandleExportSubscriptions handles GET /subscriptions/org/{org_id}/export
func (h *BillingHandler) HandleExportSubscriptions(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	writeExport(w, r, h.logger, "subscriptions", orgID.String(), func(format export.Format, out io.Writer) error {
		return h.subs.Export(r.Context(), currentUser(r), orgID, format, out)
	})
}

// HandleRecordPayment handles POST /payments
func (h *BillingHandler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}
	paidAt, err := utils.ParseOptionalDate("payment_date", req.PaymentDate)
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	payment, err := h.payments.Record(r.Context(), currentUser(r), services.PaymentInput{
		MemberID:       req.MemberID,
		SubscriptionID: req.SubscriptionID,
		Amount:         req.Amount,
		PaymentDate:    paidAt,
		Method:         req.Method,
		Status:         models.PaymentStatus(req.Status),
		Reference:      req.Reference,
	})
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeCreated(w, payment, h.logger)
}

// HandleUpdatePaymentStatus handles PUT /payments/{id}/status
func (h *BillingHandler) HandleUpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := utils.URLParamUUID(r, "id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}
	var req PaymentStatusRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	payment, err := h.payments.UpdateStatus(r.Context(), currentUser(r), id, models.PaymentStatus(req.Status))
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, payment, h.logger)
}

// HandleMemberPayments handles GET /payments/member/{member_id}
func (h *BillingHandler) HandleMemberPayments(w http.ResponseWriter, r *http.Request) {
	memberID, err := utils.URLParamUUID(r, "member_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	payments, err := h.payments.ListByMember(r.Context(), currentUser(r), memberID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, payments, h.logger)
}

// HandleSubscriptionPayments handles GET /payments/subscription/{subscription_id}
func (h *BillingHandler) HandleSubscriptionPayments(w http.ResponseWriter, r *http.Request) {
	subID, err := utils.URLParamUUID(r, "subscription_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	payments, err := h.payments.ListBySubscription(r.Context(), currentUser(r), subID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, payments, h.logger)
}

// HandleOrgPayments handles GET /payments/org/{org_id}
func (h *BillingHandler) HandleOrgPayments(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	payments, err := h.payments.ListByOrg(r.Context(), currentUser(r), orgID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, payments, h.logger)
}

// HandlePaymentAggregate handles GET /payments/org/{org_id}/aggregate
func (h *BillingHandler) HandlePaymentAggregate(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	agg, err := h.payments.Aggregate(r.Context(), currentUser(r), orgID)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	writeOK(w, agg, h.logger)
}

// HandleExportPayments handles GET /payments/org/{org_id}/export
func (h *BillingHandler) HandleExportPayments(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.URLParamUUID(r, "org_id")
	if err != nil {
		badRequest(w, err, h.logger)
		return
	}

	writeExport(w, r, h.logger, "payments", orgID.String(), func(format export.Format, out io.Writer) error {
		return h.payments.Export(r.Context(), currentUser(r), orgID, format, out)
	})
}
