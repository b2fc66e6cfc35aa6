package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPoints(t *testing.T) {
	cases := map[int64]string{
		0:       "0 points",
		1:       "1 point",
		-1:      "-1 point",
		25:      "25 points",
		1250:    "1,250 points",
		1000000: "1,000,000 points",
		-2350:   "-2,350 points",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatPoints(in), "FormatPoints(%d)", in)
	}
}

func TestFormatPointsDelta(t *testing.T) {
	assert.Equal(t, "+100 points", FormatPointsDelta(100))
	assert.Equal(t, "-50 points", FormatPointsDelta(-50))
	assert.Equal(t, "+1 point", FormatPointsDelta(1))
}

func TestShopLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, "UTC", ShopLocation("Nowhere/Atlantis").String())
}

func TestUserIDContext(t *testing.T) {
	_, ok := UserIDFrom(context.Background())
	assert.False(t, ok)

	_, ok = UserIDFrom(WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok, "nil uuid is not an identity")

	id := uuid.New()
	got, ok := UserIDFrom(WithUserID(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestRequireUserAnswers401(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/loyalty", nil)

	_, ok := RequireUser(w, r)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, w.Body.String())
}

func TestDecodeJSONWrapsValidation(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var dst struct{ Points int64 }
	err := DecodeJSON(w, r, &dst)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
