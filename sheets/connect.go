package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

var (
	ErrNotConfigured = errors.New("Google Sheets not configured")
	ErrCreateSheet   = errors.New("Failed to create sheet")
)

// Credentials locate a service account key. An inline JSON key wins over a
// key file.
type Credentials struct {
	JSON string
	File string
}

func (c Credentials) Configured() bool {
	return c.JSON != "" || c.File != ""
}

// ConnectFunc returns an authorized Service. It is called once per
// registration.
type ConnectFunc func(ctx context.Context) (Service, error)

// Google connects to the Sheets API as the service account in creds.
// Extra options are passed to the API client after the credentials.
func Google(creds Credentials, opts ...option.ClientOption) ConnectFunc {
	return func(ctx context.Context) (Service, error) {
		var key []byte
		switch {
		case creds.JSON != "":
			if !json.Valid([]byte(creds.JSON)) {
				return nil, ErrNotConfigured
			}
			key = []byte(creds.JSON)
		case creds.File != "":
			var err error
			key, err = os.ReadFile(creds.File)
			if err != nil {
				return nil, fmt.Errorf("read credentials: %w", err)
			}
		default:
			return nil, ErrNotConfigured
		}

		gc, err := google.CredentialsFromJSON(ctx, key, gsheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse credentials: %w", err)
		}
		return NewService(ctx, append([]option.ClientOption{option.WithCredentials(gc)}, opts...)...)
	}
}
