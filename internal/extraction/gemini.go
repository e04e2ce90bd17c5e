package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

const transcribePrompt = "You are an OCR engine. Transcribe ALL text visible in the attached receipt image.\n" +
	"Preserve line breaks. Output the raw text only, with no commentary and no Markdown."

const fieldsPrompt = `You are an expert receipt parser. Extract the following details from the provided receipt text:
- merchantName: The name of the merchant.
- amount: The total amount of the transaction.
- date: The date of the transaction (in YYYY-MM-DD format).
- description: A brief summary of the items purchased or the purpose of the transaction.
- category: The most appropriate category for the transaction (e.g., Groceries, Food, Travel, Electronics, Entertainment, Utilities, Health, Education, Shopping, Transport, Bills, Other).
- paymentMethod: The method of payment (e.g., Cash, Credit Card, Debit Card, UPI, Netbanking, Wallet).
- transactionType: The type of transaction (e.g., Purchase, Refund, Withdrawal, Transfer, Deposit).

If a field cannot be found, return null for that field.
Prioritize 'Total', 'Amount Due', 'Grand Total' for amount.
Prioritize common date formats.

Receipt Text:
`

// GeminiExtractor implements both TextExtractor and FieldExtractor on top of
// the Gemini API. It assumes GEMINI_API_KEY (or Application Default
// Credentials) is configured in the environment.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor builds an extractor for the given model, falling back to
// DefaultModelName when empty.
func NewGeminiExtractor(model string) *GeminiExtractor {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiExtractor{model: model}
}

func (g *GeminiExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("extraction: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcribePrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("extraction: transcribe image: %w", err)
	}
	return resp.Text(), nil
}

func (g *GeminiExtractor) ExtractFields(ctx context.Context, rawText string) (*ReceiptFields, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("extraction: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: fieldsPrompt + quoteText(rawText)}},
		},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   receiptSchema(),
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("extraction: parse receipt text: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("extraction: empty response from model")
	}

	var fields ReceiptFields
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &fields); err != nil {
		return nil, fmt.Errorf("extraction: unmarshal model output: %w", err)
	}
	return &fields, nil
}

// receiptSchema constrains the model to the seven-field shape with every
// field independently nullable.
func receiptSchema() *genai.Schema {
	nullable := func(t genai.Type) *genai.Schema {
		return &genai.Schema{Type: t, Nullable: genai.Ptr(true)}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"merchantName":    nullable(genai.TypeString),
			"amount":          nullable(genai.TypeNumber),
			"date":            nullable(genai.TypeString),
			"description":     nullable(genai.TypeString),
			"category":        nullable(genai.TypeString),
			"paymentMethod":   nullable(genai.TypeString),
			"transactionType": nullable(genai.TypeString),
		},
		PropertyOrdering: []string{
			"merchantName", "amount", "date", "description",
			"category", "paymentMethod", "transactionType",
		},
	}
}

func quoteText(text string) string {
	return "\"" + text + "\"\n"
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the strict-JSON instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
