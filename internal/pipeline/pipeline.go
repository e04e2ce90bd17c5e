// Package pipeline turns an uploaded receipt image into a persisted,
// categorized transaction. The stages run strictly in order; each can fail
// independently, and the temporary copy of the upload is released on every
// exit path.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/domain"
	"github.com/dvloznov/receipt-ledger/internal/extraction"
	"github.com/dvloznov/receipt-ledger/internal/ledger"
)

// Receipt is one upload entering the pipeline.
type Receipt struct {
	OwnerID  string
	FileName string
	MIMEType string
	Data     []byte
}

// Pipeline wires the external services and the ledger together.
type Pipeline struct {
	temp     TempStore
	text     extraction.TextExtractor
	fields   extraction.FieldExtractor
	resolver *CategoryResolver
	store    ledger.TransactionStore
	log      zerolog.Logger

	now func() time.Time
}

func New(temp TempStore, text extraction.TextExtractor, fields extraction.FieldExtractor,
	resolver *CategoryResolver, store ledger.TransactionStore, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		temp:     temp,
		text:     text,
		fields:   fields,
		resolver: resolver,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// Process runs one upload through all stages. Exactly one transaction is
// written on success; nothing is written on failure. The temp copy from stage
// 2 is removed exactly once regardless of the outcome, and a cleanup failure
// is logged without masking the primary result.
func (p *Pipeline) Process(ctx context.Context, in Receipt) (*domain.Transaction, error) {
	// Stage 1: intake. Fails before any temporary resource exists.
	if in.OwnerID == "" {
		return nil, domain.Errf(domain.CodeUnauthenticated, "Authentication required. User not found.")
	}
	if len(in.Data) == 0 {
		return nil, domain.Errf(domain.CodeInvalidRequest, "No files were uploaded.")
	}

	// Stage 2: persist the upload to scoped temporary storage.
	ref, err := p.temp.Save(ctx, in.FileName, in.Data)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "Failed to store uploaded file.", err)
	}
	// Stage 8: finalize. Runs on every exit path below.
	defer func() {
		if err := p.temp.Remove(ctx, ref); err != nil {
			p.log.Warn().Err(err).Str("ref", ref).Msg("Temp file cleanup failed")
		}
	}()

	// Stage 3: optical text extraction. Terminal per attempt, no retry.
	rawText, err := p.text.ExtractText(ctx, in.Data, in.MIMEType)
	if err != nil {
		return nil, domain.E(domain.CodeExtractionFailed, "Failed to read text from the receipt.", err)
	}
	p.log.Debug().Str("owner", in.OwnerID).Int("chars", len(rawText)).Msg("OCR text extracted")

	// Stage 4: structured field extraction. A semantically empty but
	// well-formed response proceeds; absent fields get defaults in stage 5.
	fields, err := p.fields.ExtractFields(ctx, rawText)
	if err != nil {
		return nil, domain.E(domain.CodeExtractionFailed, "Failed to parse receipt fields.", err)
	}

	// Stage 5: normalize with deterministic fallbacks.
	norm := normalizeFields(fields, p.now())

	// Stage 6: resolve the category guess; substitutes a fallback, never
	// rejects the guess.
	category, err := p.resolver.Resolve(ctx, in.OwnerID, norm.CategoryGuess)
	if err != nil {
		return nil, domain.E(domain.CodeInternal, "Failed to resolve category.", err)
	}

	// Stage 7: persist.
	tx := &domain.Transaction{
		OwnerID:          in.OwnerID,
		Kind:             norm.Kind,
		Amount:           norm.Amount,
		Date:             norm.Date,
		MerchantName:     norm.MerchantName,
		Description:      norm.Description,
		Category:         category,
		PaymentMethod:    norm.PaymentMethod,
		Source:           domain.SourceReceiptOCR,
		OriginalFileName: in.FileName,
	}
	if err := p.store.Insert(ctx, tx); err != nil {
		return nil, domain.E(domain.CodePersistenceFailed, "Failed to save transaction.", err)
	}

	p.log.Info().
		Str("owner", in.OwnerID).
		Str("transaction_id", tx.ID).
		Str("merchant", tx.MerchantName).
		Float64("amount", tx.Amount).
		Msg("Receipt processed")

	return tx, nil
}
