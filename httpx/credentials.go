package httpx

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("bad credentials")

// AdminVerifier checks the single organizer account of the admin API.
type AdminVerifier struct {
	User         string
	PasswordHash []byte
}

func (v AdminVerifier) ValidateUser(username string, password string) error {
	if subtle.ConstantTimeCompare([]byte(username), []byte(v.User)) != 1 {
		// compare anyway to keep timing uniform
		bcrypt.CompareHashAndPassword(v.PasswordHash, []byte(password))
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(v.PasswordHash, []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

// ClientIP is the address of the client, without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
