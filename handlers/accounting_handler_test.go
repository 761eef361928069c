package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/rbac"
	"github.com/upb/membership-backend/services"
	"github.com/upb/membership-backend/services/export"
	"go.uber.org/zap"
)

func newAccountingHandler() (*AccountingHandler, *MockAccountingService, *MockReportService) {
	txns := new(MockAccountingService)
	reports := new(MockReportService)
	h := NewAccountingHandler(txns, reports, zap.NewNop())
	h.now = func() time.Time { return time.Date(2025, 5, 17, 12, 0, 0, 0, time.UTC) }
	return h, txns, reports
}

func TestAccountingHandler_List(t *testing.T) {
	admin := testAdmin()

	t.Run("filters", func(t *testing.T) {
		handler, txns, _ := newAccountingHandler()
		from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		txns.On("List", mock.Anything, admin, mock.MatchedBy(func(q services.TransactionQuery) bool {
			return q.Account == "bank" && q.Category == "dues" && q.Type == models.TransactionIncome &&
				q.From != nil && q.From.Equal(from) && q.To == nil && q.Limit == services.DefaultPageLimit
		})).Return([]*models.AccountingTransaction{}, nil)

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet,
			"/accounting/transactions?account=bank&category=dues&type=income&from=2025-01-01", "", admin, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		txns.AssertExpectations(t)
	})

	t.Run("bad type", func(t *testing.T) {
		handler, txns, _ := newAccountingHandler()

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/accounting/transactions?type=refund", "", admin, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		txns.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad date", func(t *testing.T) {
		handler, _, _ := newAccountingHandler()

		w := httptest.NewRecorder()
		handler.HandleList(w, newRequest(http.MethodGet, "/accounting/transactions?to=May", "", admin, nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid to: expected YYYY-MM-DD", decodeBody(t, w)["message"])
	})
}

func TestAccountingHandler_CreateAndUpdate(t *testing.T) {
	admin := testAdmin()

	t.Run("create", func(t *testing.T) {
		handler, txns, _ := newAccountingHandler()
		txns.On("Create", mock.Anything, admin, mock.MatchedBy(func(in services.TransactionInput) bool {
			return in.Type == models.TransactionExpense && in.Amount == 80 &&
				in.Date.Equal(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))
		})).Return(&models.AccountingTransaction{ID: uuid.New()}, nil)

		body := `{"date":"2025-02-10","category":"venue","amount":80,"account":"cash","type":"expense"}`
		w := httptest.NewRecorder()
		handler.HandleCreate(w, newRequest(http.MethodPost, "/accounting/transactions", body, admin, nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		txns.AssertExpectations(t)
	})

	t.Run("update sets only given fields", func(t *testing.T) {
		handler, txns, _ := newAccountingHandler()
		id := uuid.New()
		txns.On("Update", mock.Anything, admin, id, mock.MatchedBy(func(in services.TransactionUpdate) bool {
			return in.Type != nil && *in.Type == models.TransactionIncome && in.Amount == nil && in.Date == nil
		})).Return(&models.AccountingTransaction{ID: id}, nil)

		w := httptest.NewRecorder()
		handler.HandleUpdate(w, newRequest(http.MethodPut, "/accounting/transactions/"+id.String(), `{"type":"income"}`, admin,
			map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
		txns.AssertExpectations(t)
	})

	t.Run("member reading another's row", func(t *testing.T) {
		handler, txns, _ := newAccountingHandler()
		member := testUser(rbac.RoleMember)
		id := uuid.New()
		txns.On("Get", mock.Anything, member, id).Return(nil, services.ErrForbidden)

		w := httptest.NewRecorder()
		handler.HandleGet(w, newRequest(http.MethodGet, "/accounting/transactions/"+id.String(), "", member,
			map[string]string{"id": id.String()}))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAccountingHandler_Reports(t *testing.T) {
	admin := testAdmin()

	t.Run("monthly chart defaults to current year", func(t *testing.T) {
		handler, _, reports := newAccountingHandler()
		reports.On("MonthlyChart", mock.Anything, admin, 2025).Return(map[string]*models.IncomeExpense{
			"01": {Income: 100}, "02": {Expense: 20},
		}, nil)

		w := httptest.NewRecorder()
		handler.HandleMonthlyChart(w, newRequest(http.MethodGet, "/reports/charts/monthly", "", admin, nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got map[string]models.IncomeExpense
		decodeData(t, w, &got)
		assert.Equal(t, 100.0, got["01"].Income)
		reports.AssertExpectations(t)
	})

	t.Run("category chart with month", func(t *testing.T) {
		handler, _, reports := newAccountingHandler()
		reports.On("CategoryChart", mock.Anything, admin, 2024, mock.MatchedBy(func(m *int) bool {
			return m != nil && *m == 3
		})).Return(map[string]*models.IncomeExpense{"dues": {Income: 40}}, nil)

		w := httptest.NewRecorder()
		handler.HandleCategoryChart(w, newRequest(http.MethodGet, "/reports/charts/category?year=2024&month=3", "", admin, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		reports.AssertExpectations(t)
	})

	t.Run("summary", func(t *testing.T) {
		handler, _, reports := newAccountingHandler()
		reports.On("Summary", mock.Anything, admin, (*time.Time)(nil), (*time.Time)(nil)).
			Return(&services.Summary{Income: 300, Expense: 120, Net: 180}, nil)

		w := httptest.NewRecorder()
		handler.HandleSummary(w, newRequest(http.MethodGet, "/reports/charts/summary", "", admin, nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got services.Summary
		decodeData(t, w, &got)
		assert.Equal(t, 180.0, got.Net)
	})

	t.Run("transaction export", func(t *testing.T) {
		handler, _, reports := newAccountingHandler()
		reports.On("ExportTransactions", mock.Anything, admin, mock.Anything, mock.Anything, export.TSV, mock.Anything).
			Return(func(w io.Writer) error {
				_, err := io.WriteString(w, "Date\tCategory\n")
				return err
			})

		w := httptest.NewRecorder()
		handler.HandleExport(w, newRequest(http.MethodGet, "/reports/transactions/export?format=xlsx&from=2025-01-01", "", admin, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `attachment; filename="transactions.tsv"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "Date\tCategory\n", w.Body.String())
	})
}
