package routes

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/catalog"
	"github.com/mbolis/festreg/httpx"
	"github.com/mbolis/festreg/log"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ListRegistrations lists the journaled registrations of an event, newest
// first.
func ListRegistrations(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		param := chi.URLParam(r, "param")
		event, ok := app.Catalog.ByParam(param)
		if !ok {
			httpx.LogNotFound(w, "admin.list_registrations", param)
			return
		}

		if app.Journal == nil {
			httpx.LogStatus(w, http.StatusServiceUnavailable, log.WarnLevel, "admin.list_registrations.journal_disabled")
			return
		}

		limit := defaultListLimit
		if q := r.URL.Query().Get("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 1 {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.limit", "invalid limit %q", q)
				return
			}
			limit = min(n, maxListLimit)
		}

		entries, err := app.Journal.List(r.Context(), event.ID, limit)
		if err != nil {
			httpx.LogInternalError(w, "db.list_registrations", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"event":         event.ID,
			"sheet":         catalog.SheetName(event.Name),
			"columns":       event.Labels(),
			"registrations": entries,
		})
	}
}
