// Package catalog holds the fixed table of events open for registration.
// The table is parsed and checked once at startup and never changes after.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mbolis/festreg/model"
	"gopkg.in/yaml.v3"
)

//go:embed events.yaml
var defaultEvents []byte

// Catalog is a read-only index over a list of events.
type Catalog struct {
	events []model.Event
	byID   map[int]int
	bySlug map[string]int
}

var reSlug = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Default returns the catalog compiled into the binary.
// It panics if the embedded table is malformed.
func Default() *Catalog {
	c, err := Parse(defaultEvents)
	if err != nil {
		panic("catalog: embedded events: " + err.Error())
	}
	return c
}

// Parse decodes a YAML list of events and checks it.
func Parse(data []byte) (*Catalog, error) {
	var events []model.Event
	if err := yaml.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return New(events)
}

// New builds a catalog from events, rejecting tables whose ids or slugs
// collide or whose form schemas are malformed.
func New(events []model.Event) (*Catalog, error) {
	c := &Catalog{
		events: make([]model.Event, 0, len(events)),
		byID:   make(map[int]int, len(events)),
		bySlug: make(map[string]int, len(events)),
	}

	var errs []error
	for _, e := range events {
		if err := check(e); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := c.byID[e.ID]; dup {
			errs = append(errs, fmt.Errorf("event %d: duplicate id", e.ID))
			continue
		}
		if _, dup := c.bySlug[e.Slug]; dup {
			errs = append(errs, fmt.Errorf("event %d: duplicate slug %q", e.ID, e.Slug))
			continue
		}

		c.byID[e.ID] = len(c.events)
		c.bySlug[e.Slug] = len(c.events)
		c.events = append(c.events, clone(e))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

func check(e model.Event) error {
	switch {
	case strings.TrimSpace(e.Name) == "":
		return fmt.Errorf("event %d: missing name", e.ID)
	case SheetName(e.Name) == "":
		return fmt.Errorf("event %d: name %q leaves an empty sheet name", e.ID, e.Name)
	case !reSlug.MatchString(e.Slug):
		return fmt.Errorf("event %d: bad slug %q", e.ID, e.Slug)
	case len(e.FormFields) == 0:
		return fmt.Errorf("event %d: no form fields", e.ID)
	}

	switch e.Access {
	case "", model.AccessInternal, model.AccessOpen:
	default:
		return fmt.Errorf("event %d: unknown access %q", e.ID, e.Access)
	}
	switch e.RegistrationStatus {
	case "", model.StatusOpen, model.StatusClosed, model.StatusSoon:
	default:
		return fmt.Errorf("event %d: unknown registration status %q", e.ID, e.RegistrationStatus)
	}

	seen := make(map[string]bool, len(e.FormFields))
	for i, f := range e.FormFields {
		switch {
		case f.ID == "" || f.ID == "eventId":
			return fmt.Errorf("event %d: field #%d: bad id %q", e.ID, i, f.ID)
		case seen[f.ID]:
			return fmt.Errorf("event %d: field %q: duplicate id", e.ID, f.ID)
		case strings.TrimSpace(f.Label) == "":
			return fmt.Errorf("event %d: field %q: missing label", e.ID, f.ID)
		case !f.Type.Valid():
			return fmt.Errorf("event %d: field %q: unknown type %q", e.ID, f.ID, f.Type)
		case f.Type.HasOptions() && len(f.Options) == 0:
			return fmt.Errorf("event %d: field %q: %s without options", e.ID, f.ID, f.Type)
		case !f.Type.HasOptions() && len(f.Options) > 0:
			return fmt.Errorf("event %d: field %q: options on a %s field", e.ID, f.ID, f.Type)
		}
		seen[f.ID] = true
	}
	return nil
}

func clone(e model.Event) model.Event {
	fields := make([]model.Field, len(e.FormFields))
	for i, f := range e.FormFields {
		if f.Options != nil {
			f.Options = append([]string(nil), f.Options...)
		}
		fields[i] = f
	}
	e.FormFields = fields
	return e
}

func (c *Catalog) ByID(id int) (model.Event, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Event{}, false
	}
	return clone(c.events[i]), true
}

// BySlug matches slugs case-insensitively, ignoring surrounding space.
func (c *Catalog) BySlug(slug string) (model.Event, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return model.Event{}, false
	}
	i, ok := c.bySlug[slug]
	if !ok {
		return model.Event{}, false
	}
	return clone(c.events[i]), true
}

// ByParam resolves a URL parameter that is either an event id or a slug.
// Ids win when a parameter could be read as both.
func (c *Catalog) ByParam(param string) (model.Event, bool) {
	param = strings.TrimSpace(param)
	if param == "" {
		return model.Event{}, false
	}
	if id, ok := model.String(param).Int(); ok {
		if e, ok := c.ByID(id); ok {
			return e, true
		}
	}
	return c.BySlug(param)
}

// ByEventID resolves the "eventId" member of a registration payload, which
// clients send either as a JSON number or as a decimal string.
func (c *Catalog) ByEventID(raw model.Scalar) (model.Event, bool) {
	if raw.IsNil() {
		return model.Event{}, false
	}
	id, ok := raw.Int()
	if !ok {
		return model.Event{}, false
	}
	return c.ByID(id)
}

// All returns every event in table order.
func (c *Catalog) All() []model.Event {
	events := make([]model.Event, len(c.events))
	for i, e := range c.events {
		events[i] = clone(e)
	}
	return events
}

func (c *Catalog) Len() int {
	return len(c.events)
}

const maxSheetName = 100

var reSheetIllegal = regexp.MustCompile(`[*?\\/:\[\]]`)

// SheetName turns an event name into a spreadsheet tab title: characters
// tabs may not contain are dropped and the result is capped at 100
// characters.
func SheetName(name string) string {
	name = reSheetIllegal.ReplaceAllLiteralString(name, "")
	name = strings.TrimSpace(name)
	// the cap counts runes, not UTF-16 code units
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}
