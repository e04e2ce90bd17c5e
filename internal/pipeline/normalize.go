package pipeline

import (
	"strings"
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/extraction"
)

// normalizedReceipt is the fully defaulted record stage 5 hands to the
// categorize and persist stages.
type normalizedReceipt struct {
	MerchantName  string
	Amount        float64
	Date          time.Time
	Description   string
	CategoryGuess string
	PaymentMethod string
	Kind          domain.TransactionKind
}

// normalizeFields applies the deterministic fallback rules for fields the
// extractor may have omitted. An empty string counts as absent, matching the
// upstream null semantics.
func normalizeFields(f *extraction.ReceiptFields, now time.Time) normalizedReceipt {
	merchant := strOr(f.MerchantName, "Unknown Merchant")

	n := normalizedReceipt{
		MerchantName:  merchant,
		Amount:        floatOr(f.Amount, 0),
		Date:          parseDateOr(f.Date, now),
		Description:   strOr(f.Description, "Receipt from "+merchant),
		CategoryGuess: strOr(f.Category, domain.UncategorizedName),
		PaymentMethod: strOr(f.PaymentMethod, ""),
		Kind:          classifyKind(strOr(f.TransactionType, "Purchase")),
	}
	return n
}

// classifyKind maps the extracted transaction type onto the ledger's two
// kinds. Only "deposit" and "refund" (case-insensitive) count as income;
// everything else, including "Purchase", "Withdrawal" and "Transfer", is an
// expense.
func classifyKind(transactionType string) domain.TransactionKind {
	switch strings.ToLower(transactionType) {
	case "deposit", "refund":
		return domain.KindIncome
	default:
		return domain.KindExpense
	}
}

func strOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func floatOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// parseDateOr parses an ISO calendar date, falling back to today when the
// field is absent or unparseable.
func parseDateOr(v *string, now time.Time) time.Time {
	if v == nil || *v == "" {
		return dateOnly(now)
	}
	d, err := time.Parse("2006-01-02", *v)
	if err != nil {
		return dateOnly(now)
	}
	return d
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
