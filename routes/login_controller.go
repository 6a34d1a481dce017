package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/httpx"
	"github.com/mbolis/festreg/log"
)

// Login trades the organizer's basic-auth credentials for a bearer token.
func Login(app app.App) http.HandlerFunc {
	verifier := httpx.AdminVerifier{
		User:         app.AdminUser,
		PasswordHash: []byte(app.AdminPasswordHash),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		if err := verifier.ValidateUser(user, pass); err != nil {
			httpx.LogStatusMsg(w, http.StatusUnauthorized, log.InfoLevel, "login.verify", "invalid credentials for %q", user)
			return
		}

		claims := map[string]any{
			"sub":   user,
			"roles": "admin",
		}
		jwtauth.SetIssuedNow(claims)
		jwtauth.SetExpiry(claims, time.Now().Add(app.TokenTTL))

		_, token, err := app.TokenAuth.Encode(claims)
		if err != nil {
			httpx.LogInternalError(w, "login.encode_token", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"access_token": token,
			"token_type":   "Bearer",
			"expires_in":   int(app.TokenTTL.Seconds()),
		})
	}
}
