package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/catalog"
	"github.com/mbolis/festreg/config"
	"github.com/mbolis/festreg/database"
	"github.com/mbolis/festreg/journal"
	"github.com/mbolis/festreg/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// spreadsheet is an in-memory sheets.Service keyed by tab title.
type spreadsheet struct {
	mu   sync.Mutex
	tabs map[string][][]string
}

func newSpreadsheet() *spreadsheet {
	return &spreadsheet{tabs: map[string][][]string{}}
}

func tabTitle(rng string) string {
	i := strings.LastIndex(rng, "'!")
	return strings.ReplaceAll(rng[1:i], "''", "'")
}

func (s *spreadsheet) Tabs(context.Context, string) ([]sheets.Tab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var tabs []sheets.Tab
	for title := range s.tabs {
		tabs = append(tabs, sheets.Tab{ID: int64(len(tabs) + 1), Title: title})
	}
	return tabs, nil
}

func (s *spreadsheet) AddTab(_ context.Context, _ string, title string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[title] = nil
	return int64(len(s.tabs)), nil
}

func (s *spreadsheet) Values(_ context.Context, _ string, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.tabs[tabTitle(rng)]
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[:1], nil
}

func (s *spreadsheet) Update(_ context.Context, _ string, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	title := tabTitle(rng)
	if len(s.tabs[title]) == 0 {
		s.tabs[title] = [][]string{rows[0]}
	} else {
		s.tabs[title][0] = rows[0]
	}
	return nil
}

func (s *spreadsheet) Append(_ context.Context, _ string, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	title := tabTitle(rng)
	s.tabs[title] = append(s.tabs[title], rows...)
	return nil
}

type sinkFunc func(ctx context.Context, spreadsheetID, title string, headers, row []string) error

func (f sinkFunc) EnsureSheetAndAppend(ctx context.Context, spreadsheetID, title string, headers, row []string) error {
	return f(ctx, spreadsheetID, title, headers, row)
}

func newApp(t *testing.T, sheet *spreadsheet) app.App {
	t.Helper()
	return app.App{
		Config:  config.Config{SpreadsheetID: "sid", TokenTTL: time.Hour},
		Catalog: catalog.Default(),
		Sink: sheets.NewSink(func(context.Context) (sheets.Service, error) {
			return sheet, nil
		}),
	}
}

type response struct {
	status int
	body   map[string]any
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) response {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("content-type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := response{status: rec.Code}
	if strings.HasPrefix(rec.Header().Get("content-type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp.body), rec.Body.String())
	}
	return resp
}

const asha = `{
	"eventId": 1,
	"fullName": "Asha",
	"email": "a@b.com",
	"contactNumber": "9999999999",
	"collegeName": "X",
	"participantCategory": "RBU Student",
	"performanceType": "Monologue"
}`

var naaqaabHeaders = []string{"Full Name", "Email", "Contact Number", "College Name", "Participant Category", "Performance Type"}

func TestRegisterAppendsRow(t *testing.T) {
	sheet := newSpreadsheet()
	h := Wire(newApp(t, sheet))

	resp := do(t, h, http.MethodPost, "/api/register", asha)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, map[string]any{"ok": true}, resp.body)

	assert.Equal(t, [][]string{
		naaqaabHeaders,
		{"Asha", "a@b.com", "9999999999", "X", "RBU Student", "Monologue"},
	}, sheet.tabs["Naaqaab"])
}

func TestRegisterTwiceDuplicatesRow(t *testing.T) {
	sheet := newSpreadsheet()
	h := Wire(newApp(t, sheet))

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/register", asha).status)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/register", asha).status)

	rows := sheet.tabs["Naaqaab"]
	require.Len(t, rows, 3)
	assert.Equal(t, naaqaabHeaders, rows[0])
	assert.Equal(t, rows[1], rows[2])
}

func TestRegisterStringEventID(t *testing.T) {
	sheet := newSpreadsheet()
	h := Wire(newApp(t, sheet))

	body := strings.Replace(asha, `"eventId": 1`, `"eventId": "1"`, 1)
	resp := do(t, h, http.MethodPost, "/api/register", body)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, sheet.tabs["Naaqaab"], 2)
}

func TestRegisterTrailingWhitespace(t *testing.T) {
	sheet := newSpreadsheet()
	h := Wire(newApp(t, sheet))

	resp := do(t, h, http.MethodPost, "/api/register", asha+"\n\t ")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, sheet.tabs["Naaqaab"], 2)
}

func TestRegisterOutOfRangeNumber(t *testing.T) {
	sheet := newSpreadsheet()
	h := Wire(newApp(t, sheet))

	body := strings.Replace(asha, `"9999999999"`, `1e400`, 1)
	resp := do(t, h, http.MethodPost, "/api/register", body)
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	assert.Equal(t, "Infinity", sheet.tabs["Naaqaab"][1][2])
}

func TestRegisterSanitizedTabName(t *testing.T) {
	sheet := newSpreadsheet()
	h := Wire(newApp(t, sheet))

	resp := do(t, h, http.MethodPost, "/api/register", `{
		"eventId": 8,
		"fullName": "Ravi",
		"rknecEmail": "ravi@rknec.edu",
		"contactNumber": "9876543210",
		"branchSection": "CSE-A",
		"yearOfStudy": "Second Year",
		"typeOfAct": "Beatbox",
		"soloOrGroup": "Solo",
		"actDuration": "3-5 min"
	}`)
	require.Equal(t, http.StatusOK, resp.status, resp.body)

	rows := sheet.tabs["RBU's Got Talent"]
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 9)
	assert.Equal(t, "", rows[1][7], "optional act description")
}

func TestRegisterRejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		error  string
	}{
		{"missing required field", strings.Replace(asha, `"fullName": "Asha",`, "", 1), http.StatusBadRequest, "Missing required field: Full Name"},
		{"unknown event", strings.Replace(asha, `"eventId": 1`, `"eventId": 999`, 1), http.StatusBadRequest, "Invalid or missing event"},
		{"no event", `{"fullName": "Asha"}`, http.StatusBadRequest, "Invalid or missing event"},
		{"null event", `{"eventId": null}`, http.StatusBadRequest, "Invalid or missing event"},
		{"not an object", `[1, 2, 3]`, http.StatusBadRequest, "Invalid or missing event"},
		{"malformed json", `{"eventId": 1,`, http.StatusBadRequest, "Invalid JSON body"},
		{"empty body", ``, http.StatusBadRequest, "Invalid JSON body"},
		{"trailing data", asha + `trailing{garbage`, http.StatusBadRequest, "Invalid JSON body"},
		{"two objects", asha + asha, http.StatusBadRequest, "Invalid JSON body"},
		{"bad email", strings.Replace(asha, `"a@b.com"`, `"a@b"`, 1), http.StatusBadRequest, "Invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet := newSpreadsheet()
			h := Wire(newApp(t, sheet))

			resp := do(t, h, http.MethodPost, "/api/register", tt.body)
			assert.Equal(t, tt.status, resp.status)
			assert.Equal(t, map[string]any{"ok": false, "error": tt.error}, resp.body)
			assert.Empty(t, sheet.tabs, "nothing written")
		})
	}
}

func TestRegisterNotConfigured(t *testing.T) {
	a := newApp(t, newSpreadsheet())
	a.SpreadsheetID = ""
	a.Sink = sinkFunc(func(context.Context, string, string, []string, []string) error {
		t.Fatal("sink must not be called")
		return nil
	})

	resp := do(t, Wire(a), http.MethodPost, "/api/register", asha)
	assert.Equal(t, http.StatusServiceUnavailable, resp.status)
	assert.Equal(t, map[string]any{"ok": false, "error": "Registration not configured"}, resp.body)

	// validation still comes first
	resp = do(t, Wire(a), http.MethodPost, "/api/register", `{"eventId": 999}`)
	assert.Equal(t, http.StatusBadRequest, resp.status)
}

func TestRegisterSinkFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"credentials", sheets.ErrNotConfigured, "Google Sheets not configured"},
		{"create sheet", sheets.ErrCreateSheet, "Failed to create sheet"},
		{"upstream", errors.New("append row: googleapi: Error 403: forbidden"), "append row: googleapi: Error 403: forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newApp(t, nil)
			a.Sink = sinkFunc(func(context.Context, string, string, []string, []string) error { return tt.err })

			resp := do(t, Wire(a), http.MethodPost, "/api/register", asha)
			assert.Equal(t, http.StatusInternalServerError, resp.status)
			assert.Equal(t, map[string]any{"ok": false, "error": tt.want}, resp.body)
		})
	}
}

func TestRegisterPassesSinkArguments(t *testing.T) {
	var gotID, gotTitle string
	var gotHeaders, gotRow []string

	a := newApp(t, nil)
	a.SpreadsheetID = "spreadsheet-123"
	a.Sink = sinkFunc(func(_ context.Context, id, title string, headers, row []string) error {
		gotID, gotTitle, gotHeaders, gotRow = id, title, headers, row
		return nil
	})

	resp := do(t, Wire(a), http.MethodPost, "/api/register", asha)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "spreadsheet-123", gotID)
	assert.Equal(t, "Naaqaab", gotTitle)
	assert.Equal(t, naaqaabHeaders, gotHeaders)
	assert.Len(t, gotRow, len(gotHeaders))
}

func openJournal(t *testing.T) *journal.Journal {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "festreg.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return journal.New(db)
}

type failingJournal struct{ app.Journal }

func (failingJournal) Record(context.Context, journal.Entry) (journal.Entry, error) {
	return journal.Entry{}, errors.New("disk full")
}

func TestRegisterJournals(t *testing.T) {
	a := newApp(t, newSpreadsheet())
	j := openJournal(t)
	a.Journal = j
	h := Wire(a)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/register", asha).status)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/register", asha).status)

	entries, err := j.List(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Naaqaab", entries[0].Sheet)
	assert.Equal(t, entries[0].Fingerprint, entries[1].Fingerprint)
	assert.Equal(t, []string{"Asha", "a@b.com", "9999999999", "X", "RBU Student", "Monologue"}, entries[0].Values)
}

func TestRegisterJournalFailureStillSucceeds(t *testing.T) {
	sheet := newSpreadsheet()
	a := newApp(t, sheet)
	a.Journal = failingJournal{}

	resp := do(t, Wire(a), http.MethodPost, "/api/register", asha)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, sheet.tabs["Naaqaab"], 2)
}

func TestListEvents(t *testing.T) {
	resp := do(t, Wire(newApp(t, nil)), http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, resp.status)

	events := resp.body["events"].([]any)
	require.Len(t, events, 18)
	first := events[0].(map[string]any)
	assert.EqualValues(t, 1, first["id"])
	assert.Equal(t, "naaqaab", first["slug"])
	assert.Equal(t, "Open to all", first["access"])
	assert.NotContains(t, first, "formFields")
}

func TestGetEvent(t *testing.T) {
	h := Wire(newApp(t, nil))

	for _, param := range []string{"1", "naaqaab"} {
		resp := do(t, h, http.MethodGet, "/api/events/"+param, "")
		require.Equal(t, http.StatusOK, resp.status, param)
		assert.Equal(t, "Naaqaab", resp.body["name"])
		assert.Len(t, resp.body["formFields"], 6)
		assert.Len(t, resp.body["columns"], 6)
	}

	resp := do(t, h, http.MethodGet, "/api/events/poetry-slam", "")
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func adminApp(t *testing.T) app.App {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	a := newApp(t, newSpreadsheet())
	a.AdminUser = "organizer"
	a.AdminPasswordHash = string(hash)
	a.TokenSecret = "test-secret"
	a.TokenAuth = jwtauth.New("HS256", []byte(a.TokenSecret), nil)
	return a
}

func login(t *testing.T, h http.Handler, user, pass string) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	req.SetBasicAuth(user, pass)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	resp := response{status: rec.Code}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp.body))
	}
	return resp
}

func TestAdminRoutesHiddenWithoutSecret(t *testing.T) {
	h := Wire(newApp(t, nil))
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/login", "").status)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/admin/events/1/registrations", "").status)
}

func TestLogin(t *testing.T) {
	h := Wire(adminApp(t))

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/login", "").status)
	assert.Equal(t, http.StatusUnauthorized, login(t, h, "organizer", "wrong").status)
	assert.Equal(t, http.StatusUnauthorized, login(t, h, "someone", "hunter2").status)

	resp := login(t, h, "organizer", "hunter2")
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "Bearer", resp.body["token_type"])
	assert.EqualValues(t, 3600, resp.body["expires_in"])
	assert.NotEmpty(t, resp.body["access_token"])
}

func TestListRegistrations(t *testing.T) {
	a := adminApp(t)
	a.Journal = openJournal(t)
	h := Wire(a)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/register", asha).status)

	token := login(t, h, "organizer", "hunter2").body["access_token"].(string)
	auth := []string{"authorization", "Bearer " + token}

	resp := do(t, h, http.MethodGet, "/api/admin/events/naaqaab/registrations", "", auth...)
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 1, resp.body["event"])
	assert.Equal(t, "Naaqaab", resp.body["sheet"])
	assert.Len(t, resp.body["columns"], 6)
	regs := resp.body["registrations"].([]any)
	require.Len(t, regs, 1)
	assert.Equal(t, "Asha", regs[0].(map[string]any)["values"].([]any)[0])

	resp = do(t, h, http.MethodGet, "/api/admin/events/2/registrations?limit=5", "", auth...)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, resp.body["registrations"])

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/admin/events/1/registrations?limit=0", "", auth...).status)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/admin/events/999/registrations", "", auth...).status)
}

func TestListRegistrationsAuth(t *testing.T) {
	a := adminApp(t)
	a.Journal = openJournal(t)
	h := Wire(a)

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/admin/events/1/registrations", "").status)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/admin/events/1/registrations", "", "authorization", "Bearer garbage").status)

	_, notAdmin, err := a.TokenAuth.Encode(map[string]any{"sub": "visitor", "roles": "viewer"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/admin/events/1/registrations", "", "authorization", "Bearer "+notAdmin).status)

	other := jwtauth.New("HS256", []byte("another-secret"), nil)
	_, forged, err := other.Encode(map[string]any{"sub": "organizer", "roles": "admin"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/admin/events/1/registrations", "", "authorization", "Bearer "+forged).status)
}

func TestListRegistrationsJournalDisabled(t *testing.T) {
	a := adminApp(t)
	h := Wire(a)

	token := login(t, h, "organizer", "hunter2").body["access_token"].(string)
	resp := do(t, h, http.MethodGet, "/api/admin/events/1/registrations", "", "authorization", "Bearer "+token)
	assert.Equal(t, http.StatusServiceUnavailable, resp.status)
}
