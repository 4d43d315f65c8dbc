package domain

// FieldType governs which answer affordance is used for a field.
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldCheckbox    FieldType = "checkbox"
	FieldRadioButton FieldType = "radiobutton"
	FieldComboBox    FieldType = "combobox"
	FieldListBox     FieldType = "listbox"
	FieldSignature   FieldType = "signature"
	FieldUnknown     FieldType = "unknown"
)

// Checkbox answers are constrained to this vocabulary.
const (
	AnswerYes = "yes"
	AnswerNo  = "no"
)

// Field is one fillable slot in the form, keyed by Name within a session.
type Field struct {
	Name string
	Type FieldType
}

// Question is the payload of GET /session/{id}/question. When IsComplete is
// set the remaining attributes carry no meaning.
type Question struct {
	Text       string    `json:"question"`
	FieldName  string    `json:"field_name"`
	FieldType  FieldType `json:"field_type"`
	IsComplete bool      `json:"is_complete"`
}

// Field returns the field the question asks about.
func (q Question) Field() Field {
	return Field{Name: q.FieldName, Type: q.FieldType}
}
