package apperror

import (
	"errors"
	"net/http"
)

// HTTPStatus maps any error to the status code the gateway answers with.
// Errors that are not *Error are internal.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	return GetHTTPStatus(e.Kind)
}

func GetHTTPStatus(kind Kind) int {
	switch kind {
	case InvalidURL, QuotaExceeded, InvalidInput:
		return http.StatusBadRequest
	case DuplicateURL:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Unauthorised:
		return http.StatusUnauthorized
	case RequestTimeout:
		return http.StatusGatewayTimeout
	case Dependency:
		return http.StatusBadGateway
	case SchedulerFault, Internal, DatabaseErr:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
