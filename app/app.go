package app

import (
	"context"

	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/festreg/catalog"
	"github.com/mbolis/festreg/config"
	"github.com/mbolis/festreg/journal"
)

// Sink stores a validated registration row.
type Sink interface {
	EnsureSheetAndAppend(ctx context.Context, spreadsheetID, title string, headers, row []string) error
}

type Journal interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
	List(ctx context.Context, eventID int, limit int) ([]journal.Entry, error)
	CountDuplicates(ctx context.Context, eventID int, fingerprint string) (int, error)
}

// App carries the collaborators of the HTTP handlers.
// Journal and TokenAuth are nil when their features are disabled.
type App struct {
	config.Config
	Catalog   *catalog.Catalog
	Sink      Sink
	Journal   Journal
	TokenAuth *jwtauth.JWTAuth
}
