package domain

import (
	"time"
)

// TransactionKind is the business meaning of a transaction: money in or money out.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// ValidKind reports whether k is one of the two supported kinds.
func ValidKind(k TransactionKind) bool {
	return k == KindIncome || k == KindExpense
}

// TransactionSource records how a transaction entered the ledger.
type TransactionSource string

const (
	SourceManual     TransactionSource = "manual"
	SourceReceiptOCR TransactionSource = "receipt_ocr"
)

// CategoryRef is the category snapshot embedded on a transaction at write time.
// It is a point-in-time copy: renaming or deleting the source category later
// does not touch transactions that already reference it.
type CategoryRef struct {
	ID   string `bson:"_id" json:"_id"`
	Name string `bson:"name" json:"name"`
}

// Transaction is one financial event in the ledger.
type Transaction struct {
	ID               string            `bson:"_id,omitempty" json:"id"`
	OwnerID          string            `bson:"userId" json:"userId"`
	Kind             TransactionKind   `bson:"type" json:"type"`
	Amount           float64           `bson:"amount" json:"amount"`
	Date             time.Time         `bson:"date" json:"date"`
	MerchantName     string            `bson:"merchantName,omitempty" json:"merchantName,omitempty"`
	Description      string            `bson:"description,omitempty" json:"description,omitempty"`
	Category         CategoryRef       `bson:"category" json:"category"`
	PaymentMethod    string            `bson:"paymentMethod,omitempty" json:"paymentMethod,omitempty"`
	Tags             []string          `bson:"tags,omitempty" json:"tags,omitempty"`
	Source           TransactionSource `bson:"source" json:"source"`
	OriginalFileName string            `bson:"originalFileName,omitempty" json:"originalFileName,omitempty"`
	CreatedAt        time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time         `bson:"updatedAt" json:"updatedAt"`
}
