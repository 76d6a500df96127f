package marc

// Wire format constants for MARC 21 / ISO 2709 records.
const (
	// RecordTerminator closes every record.
	RecordTerminator byte = 0x1D

	// FieldTerminator closes the directory and every field.
	FieldTerminator byte = 0x1E

	// SubfieldDelimiter starts every subfield within a data field.
	SubfieldDelimiter byte = 0x1F

	// LeaderLength is the fixed size of the record leader, including
	// the 5-digit record length that opens it.
	LeaderLength = 24

	// DirectoryEntryLength is the fixed size of one directory entry:
	// 3-character tag, 4-digit field length, 5-digit field offset.
	DirectoryEntryLength = 12

	// MaxRecordLength is the largest record the 5-digit length header
	// can describe.
	MaxRecordLength = 99999

	// MaxFieldLength is the largest field the 4-digit directory length
	// can describe.
	MaxFieldLength = 9999
)

// Record is one decoded bibliographic record: a leader followed by
// fields in their original order.
//
// Fields is a single ordered slice rather than per-tag maps: field
// order is semantically meaningful in MARC and tags repeat, so the
// decoded order (including duplicate tags) must survive an
// Encode/Decode round trip byte for byte.
//
// A Record is immutable once produced by Decode; no component in this
// module modifies one after the decoder returns it.
type Record struct {
	Leader Leader
	Fields []Field
}

// Field is one variable field. Control fields (tags 001-009) carry
// their content in Value; data fields carry two indicators and an
// ordered subfield list instead.
type Field struct {
	Tag string

	// Control field content. Empty for data fields.
	Value string

	// Data field content. Unused for control fields.
	Ind1, Ind2 byte
	Subfields  []Subfield
}

// Subfield is a one-character code and its value.
type Subfield struct {
	Code  byte
	Value string
}

// IsControl reports whether the field's tag names a control field.
// MARC 21 reserves tags 001-009 (and anything below 010) for control
// fields, which have no indicators or subfields.
func (f *Field) IsControl() bool {
	return isControlTag(f.Tag)
}

func isControlTag(tag string) bool {
	return len(tag) == 3 && tag < "010"
}

// Subfield returns the value of the first subfield with the given
// code, and whether one was present.
func (f *Field) Subfield(code byte) (string, bool) {
	for i := range f.Subfields {
		if f.Subfields[i].Code == code {
			return f.Subfields[i].Value, true
		}
	}
	return "", false
}

// ControlValue returns the value of the first control field with the
// given tag, and whether one was present.
func (r *Record) ControlValue(tag string) (string, bool) {
	for i := range r.Fields {
		if r.Fields[i].Tag == tag && r.Fields[i].IsControl() {
			return r.Fields[i].Value, true
		}
	}
	return "", false
}

// FieldsByTag returns all fields with the given tag in record order.
func (r *Record) FieldsByTag(tag string) []Field {
	var out []Field
	for i := range r.Fields {
		if r.Fields[i].Tag == tag {
			out = append(out, r.Fields[i])
		}
	}
	return out
}
