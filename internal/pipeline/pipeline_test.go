package pipeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/extraction"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
	"github.com/dvloznov/receipt-ledger/internal/pipeline"
)

// MockTempStore is a mock temp storage backend for pipeline tests.
type MockTempStore struct {
	SaveFunc   func(ctx context.Context, name string, data []byte) (string, error)
	RemoveFunc func(ctx context.Context, ref string) error

	saves   int
	removes []string
}

func (m *MockTempStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	m.saves++
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, name, data)
	}
	return "tmp/" + name, nil
}

func (m *MockTempStore) Remove(ctx context.Context, ref string) error {
	m.removes = append(m.removes, ref)
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, ref)
	}
	return nil
}

// MockTextExtractor is a mock OCR backend.
type MockTextExtractor struct {
	ExtractTextFunc func(ctx context.Context, data []byte, mimeType string) (string, error)
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, data, mimeType)
	}
	return "WHOLE FOODS\nTOTAL 42.17", nil
}

// MockFieldExtractor is a mock structured field parser.
type MockFieldExtractor struct {
	ExtractFieldsFunc func(ctx context.Context, rawText string) (*extraction.ReceiptFields, error)
}

func (m *MockFieldExtractor) ExtractFields(ctx context.Context, rawText string) (*extraction.ReceiptFields, error) {
	if m.ExtractFieldsFunc != nil {
		return m.ExtractFieldsFunc(ctx, rawText)
	}
	return &extraction.ReceiptFields{}, nil
}

// MockTransactionStore records inserts and stubs the rest of the store.
type MockTransactionStore struct {
	InsertFunc func(ctx context.Context, tx *domain.Transaction) error

	inserted []*domain.Transaction
}

func (m *MockTransactionStore) Insert(ctx context.Context, tx *domain.Transaction) error {
	if m.InsertFunc != nil {
		if err := m.InsertFunc(ctx, tx); err != nil {
			return err
		}
	}
	m.inserted = append(m.inserted, tx)
	return nil
}

func (m *MockTransactionStore) Get(ctx context.Context, ownerID, id string) (*domain.Transaction, error) {
	return nil, ledger.ErrNotFound
}

func (m *MockTransactionStore) List(ctx context.Context, filter ledger.TransactionFilter, opts ledger.ListOptions) ([]domain.Transaction, int64, error) {
	return nil, 0, nil
}

func (m *MockTransactionStore) Update(ctx context.Context, ownerID, id string, upd ledger.TransactionUpdate) (*domain.Transaction, error) {
	return nil, ledger.ErrNotFound
}

func (m *MockTransactionStore) Delete(ctx context.Context, ownerID, id string) error {
	return ledger.ErrNotFound
}

func (m *MockTransactionStore) ExpenseTotalsByCategory(ctx context.Context, ownerID string, from, to *time.Time) ([]ledger.CategoryTotal, error) {
	return nil, nil
}

func (m *MockTransactionStore) MonthlyExpenseTotals(ctx context.Context, ownerID string, from, to time.Time) ([]ledger.MonthTotal, error) {
	return nil, nil
}

func (m *MockTransactionStore) MonthlyFlows(ctx context.Context, ownerID string, from, to time.Time) ([]ledger.MonthFlow, error) {
	return nil, nil
}

func (m *MockTransactionStore) Summary(ctx context.Context, ownerID string, windowStart, now time.Time) (*ledger.OwnerSummary, error) {
	return &ledger.OwnerSummary{}, nil
}

// MockCategoryStore serves category lookups from an in-memory slice.
type MockCategoryStore struct {
	FindByNameFunc func(ctx context.Context, ownerID, name string) (*domain.Category, error)
	InsertFunc     func(ctx context.Context, c *domain.Category) error
}

func (m *MockCategoryStore) FindByName(ctx context.Context, ownerID, name string) (*domain.Category, error) {
	if m.FindByNameFunc != nil {
		return m.FindByNameFunc(ctx, ownerID, name)
	}
	return nil, ledger.ErrNotFound
}

func (m *MockCategoryStore) Get(ctx context.Context, id string) (*domain.Category, error) {
	return nil, ledger.ErrNotFound
}

func (m *MockCategoryStore) ListVisible(ctx context.Context, ownerID string) ([]domain.Category, error) {
	return nil, nil
}

func (m *MockCategoryStore) Insert(ctx context.Context, c *domain.Category) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, c)
	}
	c.ID = "generated-id"
	return nil
}

func groceriesStore() *MockCategoryStore {
	return &MockCategoryStore{
		FindByNameFunc: func(ctx context.Context, ownerID, name string) (*domain.Category, error) {
			if name == "Groceries" {
				return &domain.Category{ID: "cat-groceries", Name: "Groceries", Type: domain.CategoryExpense}, nil
			}
			return nil, ledger.ErrNotFound
		},
	}
}

func newTestPipeline(temp *MockTempStore, text *MockTextExtractor, fields *MockFieldExtractor,
	cats *MockCategoryStore, store *MockTransactionStore) *pipeline.Pipeline {
	return pipeline.New(temp, text, fields, pipeline.NewCategoryResolver(cats), store, zerolog.Nop())
}

func testReceipt() pipeline.Receipt {
	return pipeline.Receipt{
		OwnerID:  "user-1",
		FileName: "receipt.jpg",
		MIMEType: "image/jpeg",
		Data:     []byte("fake image bytes"),
	}
}

func TestProcess_Success(t *testing.T) {
	temp := &MockTempStore{}
	text := &MockTextExtractor{}
	fields := &MockFieldExtractor{
		ExtractFieldsFunc: func(ctx context.Context, rawText string) (*extraction.ReceiptFields, error) {
			merchant := "Whole Foods"
			amount := 42.17
			date := "2025-03-09"
			category := "Groceries"
			kind := "Purchase"
			return &extraction.ReceiptFields{
				MerchantName:    &merchant,
				Amount:          &amount,
				Date:            &date,
				Category:        &category,
				TransactionType: &kind,
			}, nil
		},
	}
	store := &MockTransactionStore{}

	p := newTestPipeline(temp, text, fields, groceriesStore(), store)
	tx, err := p.Process(context.Background(), testReceipt())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d transactions, want 1", len(store.inserted))
	}
	if tx.MerchantName != "Whole Foods" {
		t.Errorf("MerchantName = %q, want %q", tx.MerchantName, "Whole Foods")
	}
	if tx.Amount != 42.17 {
		t.Errorf("Amount = %v, want 42.17", tx.Amount)
	}
	if tx.Kind != domain.KindExpense {
		t.Errorf("Kind = %q, want expense", tx.Kind)
	}
	if tx.Category.ID != "cat-groceries" {
		t.Errorf("Category.ID = %q, want cat-groceries", tx.Category.ID)
	}
	if tx.Source != domain.SourceReceiptOCR {
		t.Errorf("Source = %q, want %q", tx.Source, domain.SourceReceiptOCR)
	}
	if tx.OriginalFileName != "receipt.jpg" {
		t.Errorf("OriginalFileName = %q, want receipt.jpg", tx.OriginalFileName)
	}

	if len(temp.removes) != 1 {
		t.Fatalf("temp removed %d times, want 1", len(temp.removes))
	}
	if temp.removes[0] != "tmp/receipt.jpg" {
		t.Errorf("removed ref = %q, want the saved ref", temp.removes[0])
	}
}

func TestProcess_IntakeFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *pipeline.Receipt)
		wantCode domain.ErrorCode
	}{
		{
			name:     "missing owner",
			mutate:   func(r *pipeline.Receipt) { r.OwnerID = "" },
			wantCode: domain.CodeUnauthenticated,
		},
		{
			name:     "empty upload",
			mutate:   func(r *pipeline.Receipt) { r.Data = nil },
			wantCode: domain.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp := &MockTempStore{}
			store := &MockTransactionStore{}
			p := newTestPipeline(temp, &MockTextExtractor{}, &MockFieldExtractor{}, groceriesStore(), store)

			in := testReceipt()
			tt.mutate(&in)

			_, err := p.Process(context.Background(), in)
			if domain.CodeOf(err) != tt.wantCode {
				t.Errorf("error code = %q, want %q", domain.CodeOf(err), tt.wantCode)
			}
			if temp.saves != 0 {
				t.Errorf("temp saved %d times, want 0", temp.saves)
			}
			if len(store.inserted) != 0 {
				t.Errorf("inserted %d transactions, want 0", len(store.inserted))
			}
		})
	}
}

func TestProcess_StageFailuresCleanUpTemp(t *testing.T) {
	failure := errors.New("backend down")

	tests := []struct {
		name     string
		text     *MockTextExtractor
		fields   *MockFieldExtractor
		insert   func(ctx context.Context, tx *domain.Transaction) error
		wantCode domain.ErrorCode
	}{
		{
			name: "text extraction fails",
			text: &MockTextExtractor{
				ExtractTextFunc: func(ctx context.Context, data []byte, mimeType string) (string, error) {
					return "", failure
				},
			},
			fields:   &MockFieldExtractor{},
			wantCode: domain.CodeExtractionFailed,
		},
		{
			name: "field extraction fails",
			text: &MockTextExtractor{},
			fields: &MockFieldExtractor{
				ExtractFieldsFunc: func(ctx context.Context, rawText string) (*extraction.ReceiptFields, error) {
					return nil, failure
				},
			},
			wantCode: domain.CodeExtractionFailed,
		},
		{
			name:   "persistence fails",
			text:   &MockTextExtractor{},
			fields: &MockFieldExtractor{},
			insert: func(ctx context.Context, tx *domain.Transaction) error {
				return failure
			},
			wantCode: domain.CodePersistenceFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			temp := &MockTempStore{}
			store := &MockTransactionStore{InsertFunc: tt.insert}
			p := newTestPipeline(temp, tt.text, tt.fields, groceriesStore(), store)

			_, err := p.Process(context.Background(), testReceipt())
			if domain.CodeOf(err) != tt.wantCode {
				t.Errorf("error code = %q, want %q", domain.CodeOf(err), tt.wantCode)
			}
			if len(store.inserted) != 0 {
				t.Errorf("inserted %d transactions, want 0", len(store.inserted))
			}
			if len(temp.removes) != 1 {
				t.Errorf("temp removed %d times, want 1", len(temp.removes))
			}
		})
	}
}

func TestProcess_TempSaveFailure(t *testing.T) {
	temp := &MockTempStore{
		SaveFunc: func(ctx context.Context, name string, data []byte) (string, error) {
			return "", errors.New("disk full")
		},
	}
	store := &MockTransactionStore{}
	p := newTestPipeline(temp, &MockTextExtractor{}, &MockFieldExtractor{}, groceriesStore(), store)

	_, err := p.Process(context.Background(), testReceipt())
	if domain.CodeOf(err) != domain.CodeInternal {
		t.Errorf("error code = %q, want %q", domain.CodeOf(err), domain.CodeInternal)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d transactions, want 0", len(store.inserted))
	}
	// Nothing was stored, so there is nothing to remove.
	if len(temp.removes) != 0 {
		t.Errorf("temp removed %d times, want 0", len(temp.removes))
	}
}

func TestProcess_CleanupFailureDoesNotMaskResult(t *testing.T) {
	temp := &MockTempStore{
		RemoveFunc: func(ctx context.Context, ref string) error {
			return errors.New("object already gone")
		},
	}
	store := &MockTransactionStore{}
	p := newTestPipeline(temp, &MockTextExtractor{}, &MockFieldExtractor{}, groceriesStore(), store)

	tx, err := p.Process(context.Background(), testReceipt())
	if err != nil {
		t.Fatalf("Process() error = %v, want success despite cleanup failure", err)
	}
	if tx == nil {
		t.Fatal("Process() returned nil transaction")
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d transactions, want 1", len(store.inserted))
	}
}

func TestProcess_UnknownCategoryFallsBack(t *testing.T) {
	cats := groceriesStore()
	var insertedCategory *domain.Category
	cats.InsertFunc = func(ctx context.Context, c *domain.Category) error {
		c.ID = "cat-uncategorized"
		insertedCategory = c
		return nil
	}

	fields := &MockFieldExtractor{
		ExtractFieldsFunc: func(ctx context.Context, rawText string) (*extraction.ReceiptFields, error) {
			guess := "Cryptocurrency"
			return &extraction.ReceiptFields{Category: &guess}, nil
		},
	}
	store := &MockTransactionStore{}
	p := newTestPipeline(&MockTempStore{}, &MockTextExtractor{}, fields, cats, store)

	tx, err := p.Process(context.Background(), testReceipt())
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if tx.Category.Name != domain.UncategorizedName {
		t.Errorf("Category.Name = %q, want %q", tx.Category.Name, domain.UncategorizedName)
	}
	if insertedCategory == nil {
		t.Fatal("fallback category was not created")
	}
	if insertedCategory.OwnerID != nil {
		t.Error("fallback category should be global")
	}
}
