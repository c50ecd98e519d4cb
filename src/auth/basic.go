package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// BasicAuth guards next with a single operator account. The password is
// checked against a bcrypt hash; the operator name is put in the context.
func BasicAuth(config Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !config.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok || !validCredentials(config, user, password) {
				if ok {
					logger.WithField("user", user).Warn("invalid credentials for error routes")
				}
				w.Header().Set("WWW-Authenticate", `Basic realm="errors"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validCredentials(config Config, user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(config.User)) == 1
	passwordOK := bcrypt.CompareHashAndPassword([]byte(config.PasswordHash), []byte(password)) == nil
	return userOK && passwordOK
}
