// Package preflight inspects a PDF locally before it is uploaded, so files
// the form service would reject for having no fillable fields never leave
// the machine.
package preflight

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-form-filler/internal/domain"
)

const opPreflight = "preflight"

// PDF field flag bits (PDF 32000-1, 12.7.4).
const (
	flagRadio      = 1 << 15
	flagPushbutton = 1 << 16
	flagCombo      = 1 << 17
)

// maxDepth bounds the field tree walk against malformed, cyclic Kids.
const maxDepth = 32

const (
	MessageNotPDF   = "The file could not be read as a PDF"
	MessageNoFields = "No form fields found in PDF"
)

// Inspect returns the fillable terminal fields of the AcroForm in rs, in
// document order. Pushbuttons are skipped since they carry no value.
func Inspect(rs io.ReadSeeker) ([]domain.Field, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(rs, conf)
	if err != nil {
		return nil, fmt.Errorf("preflight: read pdf: %w", err)
	}

	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("preflight: catalog: %w", err)
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroForm, err := ctx.DereferenceDict(acroObj)
	if err != nil {
		return nil, fmt.Errorf("preflight: AcroForm: %w", err)
	}
	if acroForm == nil {
		return nil, nil
	}
	fieldsObj, found := acroForm.Find("Fields")
	if !found {
		return nil, nil
	}
	fields, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("preflight: Fields: %w", err)
	}

	w := walker{ctx: ctx}
	for _, obj := range fields {
		w.visit(obj, "", "", nil, 0)
	}
	return w.out, nil
}

type walker struct {
	ctx *model.Context
	out []domain.Field
}

// visit walks one node of the field tree. FT and Ff are inheritable, so the
// parent's values are passed down.
func (w *walker) visit(obj types.Object, parentName, parentFT string, parentFlags *int, depth int) {
	if depth > maxDepth {
		return
	}
	dict, err := w.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return
	}

	name := parentName
	if tObj, ok := dict.Find("T"); ok {
		if partial, err := w.ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil); err == nil && partial != "" {
			name = qualify(parentName, partial)
		}
	}
	ft := parentFT
	if ftObj, ok := dict.Find("FT"); ok {
		if n, err := w.ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			ft = n
		}
	}
	flags := parentFlags
	if ffObj, ok := dict.Find("Ff"); ok {
		if v, err := w.ctx.DereferenceInteger(ffObj); err == nil && v != nil {
			n := int(*v)
			flags = &n
		}
	}

	if kidsObj, ok := dict.Find("Kids"); ok {
		if kids, err := w.ctx.DereferenceArray(kidsObj); err == nil && w.hasNamedKid(kids) {
			for _, kid := range kids {
				w.visit(kid, name, ft, flags, depth+1)
			}
			return
		}
	}

	if name == "" {
		return
	}
	f := 0
	if flags != nil {
		f = *flags
	}
	if ft == "Btn" && f&flagPushbutton != 0 {
		return
	}
	w.out = append(w.out, domain.Field{Name: name, Type: FieldType(ft, f)})
}

// hasNamedKid reports whether kids are child fields rather than widget
// annotations only.
func (w *walker) hasNamedKid(kids types.Array) bool {
	for _, kid := range kids {
		d, err := w.ctx.DereferenceDict(kid)
		if err != nil || d == nil {
			continue
		}
		if _, ok := d.Find("T"); ok {
			return true
		}
	}
	return false
}

func qualify(parent, partial string) string {
	if parent == "" {
		return partial
	}
	return parent + "." + partial
}

// FieldType maps a PDF field type and flag word onto the service's field
// type names.
func FieldType(ft string, flags int) domain.FieldType {
	switch ft {
	case "Tx":
		return domain.FieldText
	case "Btn":
		if flags&flagRadio != 0 {
			return domain.FieldRadioButton
		}
		if flags&flagPushbutton != 0 {
			return domain.FieldUnknown
		}
		return domain.FieldCheckbox
	case "Ch":
		if flags&flagCombo != 0 {
			return domain.FieldComboBox
		}
		return domain.FieldListBox
	case "Sig":
		return domain.FieldSignature
	default:
		return domain.FieldUnknown
	}
}

// CheckFile is the upload preflight: it fails with a validation error when
// path is not a readable PDF or has no fillable fields.
func CheckFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.NewValidationError(opPreflight, fmt.Sprintf("File not found: %s", path))
		}
		return &domain.Error{Kind: domain.KindValidation, Op: opPreflight, Message: fmt.Sprintf("Could not open %s", path), Err: err}
	}
	defer func() { _ = f.Close() }()

	fields, err := Inspect(f)
	if err != nil {
		return &domain.Error{Kind: domain.KindValidation, Op: opPreflight, Message: MessageNotPDF, Err: err}
	}
	if len(fields) == 0 {
		return domain.NewValidationError(opPreflight, MessageNoFields)
	}
	return nil
}

// Summary counts fields per type, for display.
func Summary(fields []domain.Field) string {
	counts := map[domain.FieldType]int{}
	var order []domain.FieldType
	for _, f := range fields {
		if counts[f.Type] == 0 {
			order = append(order, f.Type)
		}
		counts[f.Type]++
	}
	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%d %s", counts[t], t))
	}
	return strings.Join(parts, ", ")
}
