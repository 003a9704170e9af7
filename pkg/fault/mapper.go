package fault

import (
	"net/http"
	"time"
)

// Category is the coarse transport-level class of a raw provider failure.
// Adapters fill it from whatever their transport exposes; the mapper never
// inspects message text.
type Category int

const (
	CategoryUnknown Category = iota
	// CategoryHTTP means Status carries an HTTP status code.
	CategoryHTTP
	// CategoryNetwork covers connection resets, DNS failures and the like.
	CategoryNetwork
	// CategoryTimeout covers deadline and cancellation failures.
	CategoryTimeout
	// CategoryProtocol covers malformed provider responses.
	CategoryProtocol
)

// Failure is the raw, provider-shaped failure handed to Map by an adapter.
type Failure struct {
	Category   Category
	Status     int // HTTP status when Category == CategoryHTTP
	RetryAfter time.Duration
	Message    string
	Detail     string
}

// Map normalizes a raw provider failure into the fixed taxonomy. It is pure
// and total: every input yields a Fault, unrecognized ones fall back to
// Internal. providerID tags the result for diagnostics only; mapping never
// branches on provider identity.
func Map(providerID string, raw Failure) *Fault {
	f := &Fault{
		Kind:     classify(raw),
		Message:  raw.Message,
		Provider: providerID,
		Detail:   raw.Detail,
	}
	if f.Kind == RateLimited {
		f.RetryAfterMs = raw.RetryAfter.Milliseconds()
	}
	return f
}

func classify(raw Failure) Kind {
	switch raw.Category {
	case CategoryNetwork, CategoryTimeout:
		return TransientProvider
	case CategoryProtocol:
		return Internal
	case CategoryHTTP:
		return classifyStatus(raw)
	default:
		return Internal
	}
}

func classifyStatus(raw Failure) Kind {
	switch raw.Status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return InvalidRequest
	case http.StatusUnauthorized:
		return AuthenticationFailed
	case http.StatusForbidden:
		return AuthorizationFailed
	case http.StatusNotFound:
		return ResourceNotFound
	case http.StatusRequestTimeout:
		return TransientProvider
	case http.StatusTooManyRequests:
		return RateLimited
	case http.StatusPaymentRequired:
		return QuotaExceeded
	case http.StatusNotImplemented:
		return UnsupportedOperation
	case http.StatusServiceUnavailable:
		// Providers often signal temporary throttling as 503 with a
		// Retry-After; prefer the rate-limit classification then.
		if raw.RetryAfter > 0 {
			return RateLimited
		}
		return TransientProvider
	}
	if raw.Status >= 500 && raw.Status <= 599 {
		return TransientProvider
	}
	if raw.Status >= 400 && raw.Status <= 499 {
		return InvalidRequest
	}
	return Internal
}
