package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/efreitasn/finance/internal/domain"
)

// errorStatus maps domain sentinels to HTTP status codes. The sentinel's text
// doubles as the response error code.
var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidSymbol, http.StatusBadRequest},
	{domain.ErrInvalidQuantity, http.StatusBadRequest},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
	{domain.ErrInsufficientShares, http.StatusUnprocessableEntity},
	{domain.ErrUserNotFound, http.StatusNotFound},
	{domain.ErrUserAlreadyExists, http.StatusConflict},
	{domain.ErrOracleTransport, http.StatusServiceUnavailable},
	{domain.ErrStorage, http.StatusInternalServerError},
}

// writeServiceError writes the error response for an error returned by the
// service layer.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
		return
	}

	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			WriteError(w, m.status, m.err.Error(), err.Error())
			return
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		WriteError(w, http.StatusServiceUnavailable, "request_cancelled", err.Error())
		return
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
