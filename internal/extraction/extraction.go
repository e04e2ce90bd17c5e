// Package extraction wraps the two external capabilities the ingestion
// pipeline consumes: best-effort optical text recognition and best-effort
// structured field extraction. Both are black boxes behind small interfaces so
// the pipeline can be tested without network calls.
package extraction

import (
	"context"
)

// ReceiptFields is the structured guess the field extractor returns. Every
// field is independently nullable; absent fields are defaulted downstream.
type ReceiptFields struct {
	MerchantName    *string  `json:"merchantName"`
	Amount          *float64 `json:"amount"`
	Date            *string  `json:"date"`
	Description     *string  `json:"description"`
	Category        *string  `json:"category"`
	PaymentMethod   *string  `json:"paymentMethod"`
	TransactionType *string  `json:"transactionType"`
}

// TextExtractor turns an uploaded image into raw text. The text may be empty
// or garbled; it is never guaranteed to be structured.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// FieldExtractor turns raw receipt text into a structured guess.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, rawText string) (*ReceiptFields, error)
}
