package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func protected(t *testing.T, config Config) http.Handler {
	t.Helper()
	return BasicAuth(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		operator, ok := GetOperatorFromContext(r.Context())
		if !ok {
			operator = "anonymous"
		}
		_, _ = w.Write([]byte(operator))
	}))
}

func TestBasicAuthDisabledWithoutHash(t *testing.T) {
	rr := httptest.NewRecorder()
	protected(t, Config{User: "admin"}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/errors", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anonymous", rr.Body.String())
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	h := protected(t, Config{User: "admin", PasswordHash: string(hash)})

	tests := []struct {
		name     string
		user     string
		password string
		setAuth  bool
		expected int
	}{
		{"missing", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "root", "s3cret", true, http.StatusUnauthorized},
		{"valid", "admin", "s3cret", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/errors", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.password)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.expected, rr.Code)
			if tt.expected == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="errors"`, rr.Header().Get("WWW-Authenticate"))
			} else {
				assert.Equal(t, "admin", rr.Body.String())
			}
		})
	}
}
