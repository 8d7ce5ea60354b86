package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jonathan/ui-builder/internal/apperr"
)

// classify maps a model API failure onto the error taxonomy. Quota and 429
// responses are rate limits; everything else is an unavailable provider.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isRateLimit(err) {
		return apperr.RateLimited(err, "model rate limit exceeded")
	}
	return apperr.ProviderUnavailable(err, "model request failed")
}

func isRateLimit(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota") || strings.Contains(msg, "429")
}
