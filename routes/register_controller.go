package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/catalog"
	"github.com/mbolis/festreg/httpx"
	"github.com/mbolis/festreg/journal"
	"github.com/mbolis/festreg/log"
	"github.com/mbolis/festreg/model"
	"github.com/mbolis/festreg/sheets"
	"github.com/mbolis/festreg/validate"
)

const maxRegistrationBody = 64 << 10

// Register appends a registration to the event's sheet.
func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeBody(http.MaxBytesReader(w, r.Body, maxRegistrationBody))
		if err != nil {
			httpx.LogResult(w, r, http.StatusBadRequest, log.DebugLevel, "register.parse_body", "Invalid JSON body")
			return
		}

		// a payload that is valid JSON but not an object names no event
		var sub model.Submission
		if json.Unmarshal(body, &sub) != nil {
			sub = nil
		}

		event, ok := app.Catalog.ByEventID(sub["eventId"])
		if !ok {
			httpx.LogResult(w, r, http.StatusBadRequest, log.DebugLevel, "register.event", "Invalid or missing event")
			return
		}

		values, err := validate.Submission(sub, event)
		if err != nil {
			httpx.LogResult(w, r, http.StatusBadRequest, log.DebugLevel, "register.validate", err.Error())
			return
		}

		if !app.RegistrationEnabled() {
			httpx.LogResult(w, r, http.StatusServiceUnavailable, log.WarnLevel, "register.config", "Registration not configured")
			return
		}

		title := catalog.SheetName(event.Name)
		err = app.Sink.EnsureSheetAndAppend(r.Context(), app.SpreadsheetID, title, event.Labels(), values)
		if err != nil {
			level := log.ErrorLevel
			if errors.Is(err, sheets.ErrNotConfigured) {
				level = log.WarnLevel
			}
			httpx.LogResult(w, r, http.StatusInternalServerError, level, "register.sheet", err.Error())
			return
		}

		logger := log.WithFields(log.Fields{"event": event.Slug, "sheet": title})
		logger.Info("registration appended")

		if app.Journal != nil {
			recordRegistration(r, app.Journal, logger, journal.Entry{
				EventID:  event.ID,
				Sheet:    title,
				Values:   values,
				RemoteIP: httpx.ClientIP(r),
			})
		}

		httpx.OK(w, r)
	}
}

// decodeBody reads exactly one JSON value; anything after it but
// whitespace makes the body invalid.
func decodeBody(r io.Reader) (json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var body json.RawMessage
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("trailing data after JSON body")
	}
	return body, nil
}

// recordRegistration journals a registration that is already in the sheet.
// Failures are logged only: the client's registration went through.
func recordRegistration(r *http.Request, j app.Journal, logger *log.Entry, e journal.Entry) {
	e, err := j.Record(r.Context(), e)
	if err != nil {
		logger.WithError(err).Error("register.journal")
		return
	}

	n, err := j.CountDuplicates(r.Context(), e.EventID, e.Fingerprint)
	if err != nil {
		logger.WithError(err).Error("register.journal.duplicates")
		return
	}
	if n > 1 {
		logger.WithField("copies", n).Warn("duplicate registration")
	}
}
