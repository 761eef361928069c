package routes

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/membership-backend/app"
	"github.com/upb/membership-backend/handlers"
	"github.com/upb/membership-backend/middleware"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	if deps.Config.Server.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimw.Recoverer)
	if deps.Config.Observability.MetricsEnabled {
		r.Use(deps.Metrics.Instrument)
	}
	r.Use(chimw.Timeout(deps.Config.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	logger := deps.Logger
	authMW := deps.AuthMiddleware
	perm := authMW.RequirePermission

	health := handlers.NewHealthHandler(sqlDB(deps), logger)
	authH := handlers.NewAuthHandler(deps.AuthService, logger)
	orgs := handlers.NewOrganizationHandler(deps.OrganizationService, logger)
	users := handlers.NewUserHandler(deps.UserService, logger)
	groups := handlers.NewGroupHandler(deps.GroupService, logger)
	billing := handlers.NewBillingHandler(deps.SubscriptionService, deps.PaymentService, logger)
	events := handlers.NewEventHandler(deps.EventService, logger)
	ledger := handlers.NewAccountingHandler(deps.AccountingService, deps.ReportService, logger)
	tenant := handlers.NewTenantHandler(deps.BrandingService, deps.SettingsService, deps.I18nService, deps.AuditLogService, logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)
	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/auth/signup", authH.HandleSignup)
		r.With(deps.LoginLimiter.Limit).Post("/auth/login", authH.HandleLogin)
		r.Get("/i18n/languages", tenant.HandleListLanguages)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)

			r.Get("/auth/me", authH.HandleMe)
			r.Get("/auth/org-context", authH.HandleOrgContext)

			r.Route("/rbac", func(r chi.Router) {
				r.With(authMW.RequireRoles(rbac.RoleSuperAdmin)).
					Get("/superadmin", authH.HandleRoleGate("super admin"))
				r.With(authMW.RequireRoles(rbac.RoleSuperAdmin, rbac.RoleStateAdmin)).
					Get("/stateadmin", authH.HandleRoleGate("state admin"))
				r.With(authMW.RequireRoles(rbac.RoleSuperAdmin, rbac.RoleStateAdmin, rbac.RoleDistrictAdmin, rbac.RoleBranchAdmin)).
					Get("/branchadmin", authH.HandleRoleGate("branch admin"))
				r.With(authMW.RequireRoles(rbac.AllRoles()...)).
					Get("/member", authH.HandleRoleGate("member"))
			})

			r.Route("/orgs", func(r chi.Router) {
				r.With(perm(rbac.OrgsRead)).Get("/", orgs.HandleList)
				r.With(perm(rbac.OrgsWrite)).Post("/", orgs.HandleCreate)
				r.With(perm(rbac.OrgsRead)).Get("/{id}", orgs.HandleGet)
				r.With(perm(rbac.OrgsUpdate)).Put("/{id}", orgs.HandleUpdate)
				r.With(perm(rbac.OrgsWrite)).Delete("/{id}", orgs.HandleDelete)
			})

			r.Route("/users", func(r chi.Router) {
				r.With(perm(rbac.UsersRead)).Get("/", users.HandleList)
				r.With(perm(rbac.UsersWrite)).Post("/", users.HandleCreate)
				r.With(perm(rbac.UsersWrite)).Post("/import", users.HandleImport)
				r.With(perm(rbac.UsersRead)).Get("/{id}", users.HandleGet)
				r.With(perm(rbac.UsersWrite)).Put("/{id}", users.HandleUpdate)
				r.With(perm(rbac.UsersWrite)).Delete("/{id}", users.HandleDelete)
				r.With(perm(rbac.RolesAssign)).Post("/{id}/roles", users.HandleAddRole)
				r.With(perm(rbac.RolesAssign)).Delete("/{id}/roles/{role_name}", users.HandleRemoveRole)
			})
			r.With(perm(rbac.UsersRead)).Get("/roles", users.HandleListRoles)

			r.Route("/groups", func(r chi.Router) {
				r.With(perm(rbac.GroupsRead)).Get("/", groups.HandleList)
				r.With(perm(rbac.GroupsWrite)).Post("/", groups.HandleCreate)
				r.With(perm(rbac.GroupsRead)).Get("/{id}", groups.HandleGet)
				r.With(perm(rbac.GroupsWrite)).Put("/{id}", groups.HandleUpdate)
				r.With(perm(rbac.GroupsWrite)).Delete("/{id}", groups.HandleDelete)
				r.With(perm(rbac.GroupsWrite)).Post("/{id}/members", groups.HandleAddMembers)
				r.With(perm(rbac.GroupsWrite)).Delete("/{id}/members/{user_id}", groups.HandleRemoveMember)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.With(perm(rbac.SubscriptionsWrite)).Post("/", billing.HandleCreateSubscription)
				r.With(perm(rbac.SubscriptionsRead)).Get("/{id}", billing.HandleGetSubscription)
				r.With(perm(rbac.SubscriptionsWrite)).Post("/{id}/renew", billing.HandleRenewSubscription)
				r.With(perm(rbac.SubscriptionsWrite)).Post("/{id}/cancel", billing.HandleCancelSubscription)
				r.With(perm(rbac.SubscriptionsRead)).Get("/member/{member_id}", billing.HandleMemberSubscriptions)
				r.With(perm(rbac.SubscriptionsRead)).Get("/org/{org_id}", billing.HandleOrgSubscriptions)
				r.With(perm(rbac.SubscriptionsRead)).Get("/org/{org_id}/aggregate", billing.HandleSubscriptionAggregate)
				r.With(perm(rbac.SubscriptionsRead)).Get("/org/{org_id}/export", billing.HandleExportSubscriptions)
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(perm(rbac.PaymentsWrite)).Post("/", billing.HandleRecordPayment)
				r.With(perm(rbac.PaymentsWrite)).Put("/{id}/status", billing.HandleUpdatePaymentStatus)
				r.With(perm(rbac.PaymentsRead)).Get("/member/{member_id}", billing.HandleMemberPayments)
				r.With(perm(rbac.PaymentsRead)).Get("/subscription/{subscription_id}", billing.HandleSubscriptionPayments)
				r.With(perm(rbac.PaymentsRead)).Get("/org/{org_id}", billing.HandleOrgPayments)
				r.With(perm(rbac.PaymentsRead)).Get("/org/{org_id}/aggregate", billing.HandlePaymentAggregate)
				r.With(perm(rbac.PaymentsRead)).Get("/org/{org_id}/export", billing.HandleExportPayments)
			})

			r.Route("/events", func(r chi.Router) {
				r.With(perm(rbac.EventsRead)).Get("/", events.HandleList)
				r.With(perm(rbac.EventsWrite)).Post("/", events.HandleCreate)
				r.With(perm(rbac.EventsRead)).Get("/user/{user_id}", events.HandleListForUser)
				r.With(perm(rbac.EventsRead)).Get("/{id}", events.HandleGet)
				r.With(perm(rbac.EventsWrite)).Put("/{id}", events.HandleUpdate)
				r.With(perm(rbac.EventsWrite)).Delete("/{id}", events.HandleDelete)
				r.With(perm(rbac.EventsRSVP)).Post("/{id}/rsvp", events.HandleRSVP)
				r.With(perm(rbac.EventsRead)).Get("/{id}/qrcode", events.HandleQRCode)
				r.With(perm(rbac.EventsRead)).Get("/{id}/qrcode/download", events.HandleQRCodeDownload)
			})

			r.Route("/accounting/transactions", func(r chi.Router) {
				r.With(perm(rbac.TransactionsRead)).Get("/", ledger.HandleList)
				r.With(perm(rbac.TransactionsWrite)).Post("/", ledger.HandleCreate)
				r.With(perm(rbac.TransactionsRead)).Get("/{id}", ledger.HandleGet)
				r.With(perm(rbac.TransactionsWrite)).Put("/{id}", ledger.HandleUpdate)
				r.With(perm(rbac.TransactionsWrite)).Delete("/{id}", ledger.HandleDelete)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(perm(rbac.ReportsRead))
				r.Get("/transactions/export", ledger.HandleExport)
				r.Get("/charts/category", ledger.HandleCategoryChart)
				r.Get("/charts/monthly", ledger.HandleMonthlyChart)
				r.Get("/charts/summary", ledger.HandleSummary)
			})

			r.With(perm(rbac.BrandingRead)).Get("/branding/{org_id}", tenant.HandleGetBranding)
			r.With(perm(rbac.BrandingWrite)).Put("/branding/{org_id}", tenant.HandleUpdateBranding)
			r.With(perm(rbac.SettingsRead)).Get("/settings/{org_id}", tenant.HandleGetSettings)
			r.With(perm(rbac.SettingsWrite)).Put("/settings/{org_id}", tenant.HandleUpdateSettings)
			r.With(perm(rbac.I18nSelf)).Put("/i18n/user", tenant.HandleSetUserLanguage)
			r.With(perm(rbac.I18nOrg)).Put("/i18n/org/{org_id}", tenant.HandleSetOrgLanguage)
			r.With(perm(rbac.AuditRead)).Get("/audit/logs", tenant.HandleListAuditLogs)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return r
}

func sqlDB(deps *app.Dependencies) *sql.DB {
	if deps.DB == nil {
		return nil
	}
	return deps.DB.DB
}
