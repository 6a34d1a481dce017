// Package journal keeps a local record of registrations that reached the
// spreadsheet. The spreadsheet stays the system of record; the journal lets
// organizers list entries and spot repeated submissions.
package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID          string    `json:"id"`
	EventID     int       `json:"eventId"`
	Sheet       string    `json:"sheet"`
	Values      []string  `json:"values"`
	Fingerprint string    `json:"fingerprint"`
	RemoteIP    string    `json:"remoteIp,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Journal {
	return &Journal{db: db, now: time.Now}
}

// Fingerprint identifies a submission by its event and values. Identical
// registrations for the same event share a fingerprint.
func Fingerprint(eventID int, values []string) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(eventID)))
	for _, v := range values {
		h.Write([]byte{0})
		h.Write([]byte(v))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Record stores e, filling in its ID, fingerprint and creation time when
// unset, and returns the stored entry.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Fingerprint == "" {
		e.Fingerprint = Fingerprint(e.EventID, e.Values)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.now().UTC()
	}
	if e.Values == nil {
		e.Values = []string{}
	}

	valuesJson, err := json.Marshal(e.Values)
	if err != nil {
		return Entry{}, fmt.Errorf("encode values: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO registration (id, event_id, sheet, values_json, fingerprint, remote_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.EventID,
		e.Sheet,
		string(valuesJson),
		e.Fingerprint,
		e.RemoteIP,
		e.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert registration: %w", err)
	}
	return e, nil
}

// List returns up to limit entries of an event, newest first.
func (j *Journal) List(ctx context.Context, eventID int, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, event_id, sheet, values_json, fingerprint, remote_ip, created_at
		FROM registration
		WHERE event_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		eventID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var valuesJson string
		err = rows.Scan(&e.ID, &e.EventID, &e.Sheet, &valuesJson, &e.Fingerprint, &e.RemoteIP, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		if err = json.Unmarshal([]byte(valuesJson), &e.Values); err != nil {
			return nil, fmt.Errorf("decode values of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("query registrations: %w", err)
	}
	return entries, nil
}

// CountDuplicates counts the stored entries of an event sharing fingerprint.
func (j *Journal) CountDuplicates(ctx context.Context, eventID int, fingerprint string) (n int, err error) {
	err = j.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM registration
		WHERE event_id = ?
			AND fingerprint = ?`,
		eventID,
		fingerprint,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count duplicates: %w", err)
	}
	return n, nil
}
