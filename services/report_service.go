package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/upb/membership-backend/models"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/services/export"
	"go.uber.org/zap"
)

// Summary totals income and expense over a period
type Summary struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// ReportService builds ledger exports and chart data
type ReportService struct {
	txns   repositories.AccountingRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(txns repositories.AccountingRepository, logger *zap.Logger) *ReportService {
	return &ReportService{txns: txns, logger: logger, now: time.Now}
}

// ExportTransactions writes the ledger between from and to (inclusive) to w
func (s *ReportService) ExportTransactions(ctx context.Context, actor *models.User, from, to *time.Time, format export.Format, w io.Writer) error {
	txns, err := s.load(ctx, actor, from, to)
	if err != nil {
		return err
	}

	table := &export.Table{Header: []string{
		"ID", "Date", "Category", "Description", "Amount", "Account", "Type",
	}}
	for _, t := range txns {
		table.Append(
			t.ID.String(),
			export.Date(t.Date),
			t.Category,
			export.Optional(t.Description),
			export.Money(t.Amount),
			t.Account,
			string(t.TransactionType),
		)
	}
	return export.Write(w, format, table)
}

// CategoryChart groups income and expense by category for a year, or a single month of it
func (s *ReportService) CategoryChart(ctx context.Context, actor *models.User, year int, month *int) (map[string]*models.IncomeExpense, error) {
	if year == 0 {
		year = s.now().Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, -1)
	if month != nil {
		if *month < 1 || *month > 12 {
			return nil, ErrInvalidInput.WithDetail("month", "must be between 1 and 12")
		}
		from = time.Date(year, time.Month(*month), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, -1)
	}

	txns, err := s.load(ctx, actor, &from, &to)
	if err != nil {
		return nil, err
	}

	chart := make(map[string]*models.IncomeExpense)
	for _, t := range txns {
		bucket, ok := chart[t.Category]
		if !ok {
			bucket = &models.IncomeExpense{}
			chart[t.Category] = bucket
		}
		bucket.Add(t.TransactionType, t.Amount)
	}
	return chart, nil
}

// MonthlyChart returns income and expense for every month "01".."12" of year
func (s *ReportService) MonthlyChart(ctx context.Context, actor *models.User, year int) (map[string]*models.IncomeExpense, error) {
	if year == 0 {
		year = s.now().Year()
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	txns, err := s.load(ctx, actor, &from, &to)
	if err != nil {
		return nil, err
	}

	chart := make(map[string]*models.IncomeExpense, 12)
	for m := 1; m <= 12; m++ {
		chart[fmt.Sprintf("%02d", m)] = &models.IncomeExpense{}
	}
	for _, t := range txns {
		chart[fmt.Sprintf("%02d", int(t.Date.Month()))].Add(t.TransactionType, t.Amount)
	}
	return chart, nil
}

// Summary totals the ledger between from and to
func (s *ReportService) Summary(ctx context.Context, actor *models.User, from, to *time.Time) (*Summary, error) {
	txns, err := s.load(ctx, actor, from, to)
	if err != nil {
		return nil, err
	}
	var totals models.IncomeExpense
	for _, t := range txns {
		totals.Add(t.TransactionType, t.Amount)
	}
	return &Summary{Income: totals.Income, Expense: totals.Expense, Net: totals.Income - totals.Expense}, nil
}

func (s *ReportService) load(ctx context.Context, actor *models.User, from, to *time.Time) ([]*models.AccountingTransaction, error) {
	filter, err := ledgerFilter(actor, from, to)
	if err != nil {
		return nil, err
	}
	txns, err := s.txns.List(ctx, filter)
	if err != nil {
		return nil, fromRepo(err, nil, nil)
	}
	return txns, nil
}
