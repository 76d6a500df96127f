package marc

import "fmt"

// Encode serializes a record back to the wire format, preserving the
// original field order including repeated tags. The leader's length
// and base address are recomputed from the rebuilt directory; every
// other leader byte is taken from r.Leader, so a decoded record
// re-encodes to the exact bytes it came from.
func Encode(r *Record) ([]byte, error) {
	payloads := make([][]byte, len(r.Fields))
	dataLen := 0
	for i := range r.Fields {
		p, err := encodeField(&r.Fields[i])
		if err != nil {
			return nil, err
		}
		if len(p) > MaxFieldLength {
			return nil, fmt.Errorf("field %s: %w", r.Fields[i].Tag, ErrFieldTooLong)
		}
		payloads[i] = p
		dataLen += len(p)
	}

	dirLen := len(r.Fields) * DirectoryEntryLength
	base := LeaderLength + dirLen + 1
	total := base + dataLen + 1
	if total > MaxRecordLength {
		return nil, fmt.Errorf("%d bytes: %w", total, ErrRecordTooLong)
	}

	leader := r.Leader.normalized()
	leader.Length = total
	leader.BaseAddress = base

	out := make([]byte, 0, total)
	lb := leader.Bytes()
	out = append(out, lb[:]...)

	// Directory: one fixed-width entry per field, offsets relative to
	// the base address.
	var entry [DirectoryEntryLength]byte
	offset := 0
	for i := range r.Fields {
		copy(entry[0:3], r.Fields[i].Tag)
		putUintFixed(entry[3:7], len(payloads[i]))
		putUintFixed(entry[7:12], offset)
		out = append(out, entry[:]...)
		offset += len(payloads[i])
	}
	out = append(out, FieldTerminator)

	for _, p := range payloads {
		out = append(out, p...)
	}
	out = append(out, RecordTerminator)

	return out, nil
}

// encodeField renders one field's payload, including its trailing
// field terminator.
func encodeField(f *Field) ([]byte, error) {
	if len(f.Tag) != 3 {
		return nil, fmt.Errorf("tag %q: %w", f.Tag, ErrInvalidTag)
	}

	if f.IsControl() {
		p := make([]byte, 0, len(f.Value)+1)
		p = append(p, f.Value...)
		p = append(p, FieldTerminator)
		return p, nil
	}

	size := 3
	for i := range f.Subfields {
		size += 2 + len(f.Subfields[i].Value)
	}
	p := make([]byte, 0, size)
	p = append(p, indicator(f.Ind1), indicator(f.Ind2))
	for i := range f.Subfields {
		p = append(p, SubfieldDelimiter, f.Subfields[i].Code)
		p = append(p, f.Subfields[i].Value...)
	}
	p = append(p, FieldTerminator)
	return p, nil
}

// indicator maps the zero byte to the blank indicator so hand-built
// records encode without explicit spaces.
func indicator(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}

// normalized fills zero-valued leader positions with the MARC 21
// defaults, so records constructed in code (rather than decoded)
// produce a well-formed leader.
func (l Leader) normalized() Leader {
	def := func(b byte, d byte) byte {
		if b == 0 {
			return d
		}
		return b
	}
	l.Status = def(l.Status, 'n')
	l.Type = def(l.Type, 'a')
	l.BibLevel = def(l.BibLevel, 'm')
	l.ControlType = def(l.ControlType, ' ')
	l.CodingScheme = def(l.CodingScheme, 'a')
	l.EncodingLevel = def(l.EncodingLevel, ' ')
	l.CatalogingForm = def(l.CatalogingForm, ' ')
	l.MultipartLevel = def(l.MultipartLevel, ' ')
	if l.EntryMap == [4]byte{} {
		copy(l.EntryMap[:], "4500")
	}
	return l
}
