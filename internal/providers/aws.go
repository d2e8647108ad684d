package providers

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"
)

// FromAWS normalizes an AWS SDK error into a ProviderError. Unknown API
// errors and transport failures count as an outage.
func FromAWS(providerID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return NewProviderError(ErrorProviderOutage, providerID, "request failed", err)
	}

	category := ErrorProviderOutage
	switch apiErr.ErrorCode() {
	case "ThrottlingException", "TooManyRequestsException", "ProvisionedThroughputExceededException",
		"LimitExceededException", "ServiceQuotaExceededException", "Throttling":
		category = ErrorRateLimited
	case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException",
		"InvalidSignatureException", "AccessDenied", "MessageRejected", "NotFoundException":
		category = ErrorAuthentication
	case "ResourceNotFoundException", "NoSuchBucket":
		category = ErrorNotFound
	case "InvalidParameterException", "InvalidImageFormatException", "ImageTooLargeException",
		"BadDocumentException", "UnsupportedDocumentException", "DocumentTooLargeException",
		"ValidationException", "BadRequestException":
		category = ErrorBadData
	}
	return NewProviderError(category, providerID, apiErr.ErrorMessage(), err)
}
