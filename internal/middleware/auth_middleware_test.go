package middleware_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"dify-manga/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestHMACVerifier(t *testing.T) {
	verifier := middleware.NewHMACVerifier(testSecret)
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))

	sub, err := verifier.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: future}))
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)

	_, err = verifier.Verify(signToken(t, jwt.SigningMethodHS256, []byte("other-secret"),
		jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: future}))
	assert.Error(t, err)

	_, err = verifier.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))}))
	assert.Error(t, err)

	_, err = verifier.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.RegisteredClaims{ExpiresAt: future}))
	assert.Error(t, err)

	_, err = verifier.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret),
		jwt.RegisteredClaims{Subject: "user-1"}))
	assert.Error(t, err, "tokens without expiry are rejected")
}

func TestProtected(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "user123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	tests := []struct {
		name                string
		authHeader          string
		expectedStatus      int
		expectedUserIDLocal interface{}
		expectNextCalled    bool
	}{
		{
			name:           "No Auth Header",
			authHeader:     "",
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:                "Valid Token",
			authHeader:          "Bearer " + valid,
			expectedStatus:      fiber.StatusOK,
			expectedUserIDLocal: "user123",
			expectNextCalled:    true,
		},
		{
			name:           "Invalid Token",
			authHeader:     "Bearer not-a-jwt",
			expectedStatus: fiber.StatusUnauthorized,
		},
		{
			name:           "Malformed Auth Header - No Bearer",
			authHeader:     "Basic some_token",
			expectedStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			nextHandlerCalled := false
			var userIDLocalValue interface{}

			app.Get("/protected", middleware.Protected(middleware.NewHMACVerifier(testSecret)), func(c *fiber.Ctx) error {
				nextHandlerCalled = true
				userIDLocalValue = c.Locals(middleware.UserIDKey)
				return c.SendStatus(fiber.StatusOK)
			})

			req := httptest.NewRequest("GET", "/protected", nil)
			if tc.authHeader != "" {
				req.Header.Set("Authorization", tc.authHeader)
			}

			resp, err := app.Test(req, -1)

			require.NoError(t, err)
			assert.Equal(t, tc.expectedStatus, resp.StatusCode)
			assert.Equal(t, tc.expectNextCalled, nextHandlerCalled)
			assert.Equal(t, tc.expectedUserIDLocal, userIDLocalValue)
		})
	}
}
