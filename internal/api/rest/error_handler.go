package rest

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/tamaverse/pet-auction-backend/internal/domain/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError maps a domain error onto an HTTP response. AppErrors
// carry their own status and reason; anything else is a 500 with a
// generic body so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	status := errors.GetStatusCode(err)

	body := errorBody{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		body = errorBody{Code: appErr.Code, Message: appErr.Message}
	}

	writeJSON(w, status, errorResponse{Error: body})
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: errorBody{
		Code:    "UNAUTHORIZED",
		Message: message,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
