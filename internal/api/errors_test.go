package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExplainError(t *testing.T) {
	cases := map[string]string{
		"gateway error 429: too many requests":     "rate limiting",
		"perplexity: Rate Limit exceeded":          "rate limiting",
		"gateway error 401: invalid key":           "API key",
		"gemini api key missing":                   "API key",
		"context deadline exceeded":                "too long",
		"request timeout":                          "too long",
		"no data: project has no agent results":    "Run the research agents",
		"parse json: unexpected end of JSON input": "could not be read",
		"gateway error 402: payment required":      "credits",
	}
	for msg, want := range cases {
		require.Contains(t, ExplainError(msg), want, msg)
	}
	require.Empty(t, ExplainError("something else entirely"))
	require.Empty(t, ExplainError("parse multipart: no boundary"))
}

func TestToAPIError(t *testing.T) {
	require.Equal(t, "MP-DB-5001", toAPIError(http.StatusInternalServerError, errors.New(`ERROR: function check_data_sufficiency(uuid) does not exist`)).Code)
	require.Equal(t, "MP-DB-5002", toAPIError(http.StatusInternalServerError, errors.New("dial tcp 127.0.0.1:5432: connection refused")).Code)
	require.Equal(t, "MP-API-5000", toAPIError(http.StatusInternalServerError, errors.New("boom")).Code)
	require.Equal(t, "MP-API-5020", toAPIError(http.StatusBadGateway, errors.New("embed query: 429")).Code)
	require.Equal(t, "MP-API-5040", toAPIError(http.StatusGatewayTimeout, nil).Code)
	require.Equal(t, "MP-API-4022", toAPIError(http.StatusUnprocessableEntity, errors.New("no extractable text found in PDF")).Code)

	e := toAPIError(http.StatusBadRequest, errors.New("no files provided"))
	require.Equal(t, "MP-API-4001", e.Code)
	require.Equal(t, "No PDF file was provided.", e.Message)
}
