// Package document reads identity fields from ID documents with Amazon
// Textract AnalyzeID.
package document

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"penny/internal/providers"
	"penny/internal/verification"
)

const ProviderID = "textract"

// Textract field types read from an identity document.
const (
	fieldFirstName      = "FIRST_NAME"
	fieldLastName       = "LAST_NAME"
	fieldMiddleName     = "MIDDLE_NAME"
	fieldDocumentNumber = "DOCUMENT_NUMBER"
	fieldExpirationDate = "EXPIRATION_DATE"
)

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"02 Jan 2006",
	"02.01.2006",
}

type analyzeIDAPI interface {
	AnalyzeID(ctx context.Context, params *textract.AnalyzeIDInput, optFns ...func(*textract.Options)) (*textract.AnalyzeIDOutput, error)
}

// TextractExtractor implements verification.Extractor.
type TextractExtractor struct {
	client analyzeIDAPI
}

func NewTextractExtractor(client analyzeIDAPI) *TextractExtractor {
	return &TextractExtractor{client: client}
}

func (e *TextractExtractor) Extract(ctx context.Context, documentImage []byte) (verification.ExtractedIdentity, error) {
	out, err := e.client.AnalyzeID(ctx, &textract.AnalyzeIDInput{
		DocumentPages: []types.Document{{Bytes: documentImage}},
	})
	if err != nil {
		return verification.ExtractedIdentity{}, providers.FromAWS(ProviderID, err)
	}
	return parseIdentity(out)
}

func parseIdentity(out *textract.AnalyzeIDOutput) (verification.ExtractedIdentity, error) {
	if out == nil || len(out.IdentityDocuments) == 0 {
		return verification.ExtractedIdentity{}, providers.NewProviderError(providers.ErrorBadData, ProviderID, "no identity document found", nil)
	}

	fields := make(map[string]types.AnalyzeIDDetections)
	for _, f := range out.IdentityDocuments[0].IdentityDocumentFields {
		if f.Type == nil || f.ValueDetection == nil {
			continue
		}
		fields[aws.ToString(f.Type.Text)] = *f.ValueDetection
	}

	identity := verification.ExtractedIdentity{
		FirstName:      text(fields, fieldFirstName),
		LastName:       text(fields, fieldLastName),
		DocumentNumber: text(fields, fieldDocumentNumber),
		ExpiryDate:     date(fields, fieldExpirationDate),
	}
	name := []string{identity.FirstName, text(fields, fieldMiddleName), identity.LastName}
	identity.FullName = strings.Join(strings.Fields(strings.Join(name, " ")), " ")

	if identity.FirstName == "" && identity.LastName == "" && identity.DocumentNumber == "" {
		return verification.ExtractedIdentity{}, providers.NewProviderError(providers.ErrorBadData, ProviderID, "document has no readable identity fields", nil)
	}
	return identity, nil
}

func text(fields map[string]types.AnalyzeIDDetections, key string) string {
	d, ok := fields[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(aws.ToString(d.Text))
}

// date prefers Textract's normalized value and returns zero when the field
// is absent or unparseable.
func date(fields map[string]types.AnalyzeIDDetections, key string) time.Time {
	d, ok := fields[key]
	if !ok {
		return time.Time{}
	}
	candidates := []string{aws.ToString(d.Text)}
	if d.NormalizedValue != nil {
		candidates = append([]string{aws.ToString(d.NormalizedValue.Value)}, candidates...)
	}
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
