package middlewares

import (
	stdlog "log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/festreg/log"
)

// AccessLog logs one line per request through the application logger.
func AccessLog(next http.Handler) http.Handler {
	formatter := &middleware.DefaultLogFormatter{
		Logger:  stdlog.New(log.Writer(log.InfoLevel), "", 0),
		NoColor: true,
	}
	return middleware.RequestLogger(formatter)(next)
}

// Admin middleware to check for the 'admin' role in a bearer token signed by ja.
func Admin(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(jwtauth.Verifier(ja), jwtauth.Authenticator, admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		isAdmin := false
		if rolesClaim, ok := claims["roles"].(string); ok {
			roles := strings.Split(rolesClaim, ",")
			for _, role := range roles {
				if strings.TrimSpace(role) == "admin" {
					isAdmin = true
					break
				}
			}
		}

		if !isAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
