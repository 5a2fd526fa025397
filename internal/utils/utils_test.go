package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondFailureIncludesSuccessFalse(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondFailure(rr, http.StatusInternalServerError, "boom")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "boom", body["error"])
	assert.Equal(t, false, body["success"])
}

func TestRespondErrorOmitsSuccess(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, http.StatusUnauthorized, "Unauthorized")

	assert.JSONEq(t, `{"error":"Unauthorized"}`, rr.Body.String())
}

func TestDecodeJSONEmptyBody(t *testing.T) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	require.NoError(t, DecodeJSON(r, &req))
	assert.Equal(t, "", req.Prompt)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"prompt":`))
	assert.Error(t, DecodeJSON(r, &req))
}

func TestValidateNotBlank(t *testing.T) {
	type request struct {
		Prompt string `json:"prompt" validate:"notblank,max=10"`
	}

	field, tag := FirstValidationTag(Validate(request{Prompt: "   "}))
	assert.Equal(t, "prompt", field)
	assert.Equal(t, "notblank", tag)

	_, tag = FirstValidationTag(Validate(request{Prompt: "way too long prompt"}))
	assert.Equal(t, "max", tag)

	assert.NoError(t, Validate(request{Prompt: "dog"}))
	assert.Equal(t, map[string]string{"prompt": "This field is required"}, FormatValidationErrors(Validate(request{})))
}

func TestFormatValidationErrorsUsesJSONNames(t *testing.T) {
	type request struct {
		EmojiID string `json:"emojiId" validate:"required,uuid"`
		Note    string `validate:"max=2"`
	}

	assert.Equal(t, map[string]string{
		"emojiId": "This field is required",
		"Note":    "Value is too long",
	}, FormatValidationErrors(Validate(request{Note: "long"})))

	assert.Equal(t, map[string]string{"emojiId": "Invalid identifier"},
		FormatValidationErrors(Validate(request{EmojiID: "nope"})))
	assert.Empty(t, FormatValidationErrors(nil))
}

func TestRespondValidationErrorCarriesDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondValidationError(rr, "Invalid emoji ID", map[string]string{"emojiId": "Invalid identifier"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid emoji ID","details":{"emojiId":"Invalid identifier"}}`, rr.Body.String())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "happy dog", SanitizeString("  happy\x00 dog \n"))
}
