package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/httpx"
	"github.com/mbolis/festreg/model"
)

// ListEvents lists the registrable events without their forms.
func ListEvents(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events := app.Catalog.All()
		for i := range events {
			events[i].FormFields = nil
		}

		render.JSON(w, r, map[string]any{
			"events": events,
		})
	}
}

// GetEvent returns one event and its form, looked up by id or slug.
func GetEvent(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		param := chi.URLParam(r, "param")
		event, ok := app.Catalog.ByParam(param)
		if !ok {
			httpx.LogNotFound(w, "get_event", param)
			return
		}

		render.JSON(w, r, eventWithSheet{event, event.Labels()})
	}
}

type eventWithSheet struct {
	model.Event
	Columns []string `json:"columns"`
}
