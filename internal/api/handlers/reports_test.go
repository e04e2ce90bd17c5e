package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/analytics"
	"github.com/dvloznov/receipt-ledger/internal/api/handlers"
	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/extraction"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

func TestReportsMonthlySpending_ReturnsFullSeries(t *testing.T) {
	h := handlers.NewReportsHandler(analytics.NewEngine(&MockTransactionStore{}), false, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.MonthlySpending(rec, authedRequest(http.MethodGet, "/api/reports/monthly-spending", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var series []analytics.MonthlyAmount
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("response not a JSON array: %v", err)
	}
	if len(series) != 12 {
		t.Errorf("series length = %d, want 12", len(series))
	}
}

func TestReportsExpensesByCategory_DateValidation(t *testing.T) {
	h := handlers.NewReportsHandler(analytics.NewEngine(&MockTransactionStore{}), false, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ExpensesByCategory(rec, authedRequest(http.MethodGet,
		"/api/reports/expenses-by-category?startDate=yesterday", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 (%s)", rec.Code, rec.Body.String())
	}
}

func TestReportsExpensesByCategory_EmptyLedgerIsEmptyArray(t *testing.T) {
	h := handlers.NewReportsHandler(analytics.NewEngine(&MockTransactionStore{}), false, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.ExpensesByCategory(rec, authedRequest(http.MethodGet, "/api/reports/expenses-by-category", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want an empty JSON array", got)
	}
}

func TestReportsSummary(t *testing.T) {
	h := handlers.NewReportsHandler(analytics.NewEngine(&MockTransactionStore{}), false, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Summary(rec, authedRequest(http.MethodGet, "/api/reports/summary", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	for _, field := range []string{
		"totalBalance", "monthlyIncome", "monthlyExpenses", "incomeChange",
		"expenseChange", "savingsRate", "netIncomeLast30Days",
		"totalExpenseLast30Days", "totalTransactionsLast30Days",
	} {
		if _, ok := body[field]; !ok {
			t.Errorf("summary missing field %q", field)
		}
	}
}

// stubTextExtractor and stubFieldExtractor stand in for the Gemini calls in
// end-to-end upload tests.
type stubTextExtractor struct{}

func (stubTextExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "CORNER CAFE\nTOTAL 8.40", nil
}

type stubFieldExtractor struct{}

func (stubFieldExtractor) ExtractFields(ctx context.Context, rawText string) (*extraction.ReceiptFields, error) {
	merchant := "Corner Cafe"
	amount := 8.40
	category := "Dining"
	return &extraction.ReceiptFields{
		MerchantName: &merchant,
		Amount:       &amount,
		Category:     &category,
	}, nil
}

func TestReceiptsUpload_EndToEnd(t *testing.T) {
	temp, err := pipeline.NewLocalTempStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalTempStore() error = %v", err)
	}
	store := &MockTransactionStore{}
	p := pipeline.New(temp, stubTextExtractor{}, stubFieldExtractor{},
		pipeline.NewCategoryResolver(categoryByName("Dining", "cat-dining")), store, zerolog.Nop())
	h := handlers.NewReceiptsHandler(p, 10<<20, false, zerolog.Nop())

	buf, contentType := newMultipartReceipt(t, "receipt", "cafe.jpg", []byte("jpeg bytes"))
	req := authedRequest(http.MethodPost, "/api/ocr/receipt", buf)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d transactions, want 1", len(store.inserted))
	}
	tx := store.inserted[0]
	if tx.MerchantName != "Corner Cafe" || tx.Amount != 8.40 {
		t.Errorf("transaction = %+v", tx)
	}
	if tx.Source != domain.SourceReceiptOCR || tx.OriginalFileName != "cafe.jpg" {
		t.Errorf("provenance = %q/%q, want receipt_ocr/cafe.jpg", tx.Source, tx.OriginalFileName)
	}
}

// categoryByName builds a category store resolving exactly one name.
func categoryByName(name, id string) ledger.CategoryStore {
	return &findByNameStore{name: name, id: id}
}

type findByNameStore struct {
	MockCategoryStore
	name string
	id   string
}

func (s *findByNameStore) FindByName(ctx context.Context, ownerID, want string) (*domain.Category, error) {
	if want == s.name {
		return &domain.Category{ID: s.id, Name: s.name, Type: domain.CategoryExpense}, nil
	}
	return nil, ledger.ErrNotFound
}
