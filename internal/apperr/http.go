package apperr

import "net/http"

// HTTPStatus maps a Kind onto the status code the HTTP layer answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAccessDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRemoteUnavailable:
		return http.StatusServiceUnavailable
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
