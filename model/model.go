package model

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldTel      FieldType = "tel"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
)

// Valid reports whether t is one of the known form field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldTel, FieldNumber, FieldTextarea, FieldSelect, FieldRadio:
		return true
	}
	return false
}

// HasOptions reports whether fields of this type carry a fixed option list.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio
}

type Access string

const (
	AccessInternal Access = "RBU only"
	AccessOpen     Access = "Open to all"
)

type RegistrationStatus string

const (
	StatusOpen   RegistrationStatus = "open"
	StatusClosed RegistrationStatus = "closed"
	StatusSoon   RegistrationStatus = "soon"
)

type Event struct {
	ID                 int                `json:"id" yaml:"id"`
	Name               string             `json:"name" yaml:"name"`
	Slug               string             `json:"slug" yaml:"slug"`
	Date               string             `json:"date,omitempty" yaml:"date"`
	Venue              string             `json:"venue,omitempty" yaml:"venue"`
	Category           string             `json:"category,omitempty" yaml:"category"`
	Access             Access             `json:"access,omitempty" yaml:"access"`
	Prize              string             `json:"prize,omitempty" yaml:"prize"`
	RegistrationStatus RegistrationStatus `json:"registrationStatus,omitempty" yaml:"registrationStatus"`
	FormFields         []Field            `json:"formFields,omitempty" yaml:"formFields"`
}

// Labels returns the field labels in declaration order; they make up the
// header row of the event's sheet.
func (e Event) Labels() []string {
	labels := make([]string, len(e.FormFields))
	for i, f := range e.FormFields {
		labels[i] = f.Label
	}
	return labels
}

type Field struct {
	ID       string    `json:"id" yaml:"id"`
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
	Options  []string  `json:"options,omitempty" yaml:"options"`
}

// Submission is a decoded registration request body, keyed by field id.
// It also carries the "eventId" key.
type Submission map[string]Scalar
