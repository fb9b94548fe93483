package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	body := map[string]any{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if err != nil {
		if hint := ExplainError(err.Error()); hint != "" {
			body["hint"] = hint
		}
	}
	writeJSON(w, code, map[string]any{"error": body})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "MP-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{Code: "MP-API-5020", Message: "Upstream provider unavailable. Retry shortly."}
	case status == http.StatusServiceUnavailable:
		return apiError{Code: "MP-API-5030", Message: "Service dependencies are unavailable. Retry shortly."}
	case status == http.StatusGatewayTimeout:
		return apiError{Code: "MP-API-5040", Message: "The research pipeline did not finish in time. Check progress and retry."}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"),
			strings.Contains(raw, "function") && strings.Contains(raw, "does not exist"):
			return apiError{
				Code:    "MP-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "MP-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "MP-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "MP-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "MP-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "MP-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusConflict:
		code = "MP-API-4009"
		msg = "A research run is already in progress for this project."
	case status == http.StatusUnprocessableEntity:
		code = "MP-API-4022"
		msg = "The uploaded brief has no extractable text."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "productname and companyname are required"):
			msg = "Product name and company name are required."
		case strings.Contains(raw, "projectid must be a valid uuid"):
			msg = "Project id must be a valid UUID."
		case strings.Contains(raw, "query is required"):
			msg = "A search query is required."
		case strings.Contains(raw, "no files provided"):
			msg = "No PDF file was provided."
		case strings.Contains(raw, "brief must be a pdf"):
			msg = "The brief must be a PDF file."
		case strings.Contains(raw, "limit must be"):
			msg = "Limit must be a positive integer."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}

	return apiError{Code: code, Message: msg}
}

// ExplainError maps a raw error message to a short user-facing hint. It
// returns "" when nothing more useful than the message itself can be said.
func ExplainError(msg string) string {
	low := strings.ToLower(msg)
	switch {
	case strings.Contains(low, "429"), strings.Contains(low, "rate limit"):
		return "The AI provider is rate limiting requests. Wait a minute and try again."
	case strings.Contains(low, "402"), strings.Contains(low, "payment required"):
		return "The AI gateway credits are exhausted. Add credits to continue."
	case strings.Contains(low, "401"), strings.Contains(low, "unauthorized"), strings.Contains(low, "api key missing"):
		return "The API key was rejected or is missing. Check your API key settings."
	case strings.Contains(low, "timeout"), strings.Contains(low, "deadline exceeded"):
		return "The request took too long. Try again, or shorten the description."
	case strings.Contains(low, "no data"):
		return "Run the research agents for this project before requesting insights."
	case strings.Contains(low, "parse") && !strings.Contains(low, "multipart"):
		return "The AI response could not be read. Running the analysis again usually helps."
	}
	return ""
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
