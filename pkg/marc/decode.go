package marc

import "bytes"

// Decode parses the raw bytes of exactly one record. It is a pure
// function over its input: no shared mutable state, no references
// retained into data, so it is safe to call from any goroutine without
// synchronization. All field values are copied out of data before
// returning, because callers reuse the backing buffer across batches.
//
// Every failure comes back as a *ParseError value carrying the byte
// offset of the fault. Decode never panics on malformed input.
func Decode(data []byte) (*Record, error) {
	if len(data) < 5 {
		return nil, parseErr(ErrInvalidLengthHeader, 0, "record shorter than length header")
	}

	declared, ok := atoiFixed(data[0:5])
	if !ok || declared == 0 {
		return nil, parseErr(ErrInvalidLengthHeader, 0, "length is not a positive 5-digit number")
	}
	if declared != len(data) {
		return nil, &ParseError{
			Err:      ErrTruncatedRecord,
			Offset:   0,
			Expected: declared,
			Actual:   len(data),
		}
	}

	leader, err := ParseLeader(data)
	if err != nil {
		return nil, err
	}

	if data[len(data)-1] != RecordTerminator {
		return nil, parseErr(ErrMissingTerminator, len(data)-1, "record terminator")
	}

	// The directory runs from the end of the leader to the byte before
	// the base address, closed by a field terminator.
	dirEnd := leader.BaseAddress - 1
	if data[dirEnd] != FieldTerminator {
		return nil, parseErr(ErrMissingTerminator, dirEnd, "directory terminator")
	}
	dirLen := dirEnd - LeaderLength
	if dirLen%DirectoryEntryLength != 0 {
		return nil, parseErr(ErrInvalidLeader, LeaderLength, "directory length is not a multiple of the entry size")
	}

	rec := &Record{
		Leader: leader,
		Fields: make([]Field, 0, dirLen/DirectoryEntryLength),
	}

	for off := LeaderLength; off < dirEnd; off += DirectoryEntryLength {
		field, err := decodeField(data, off, leader.BaseAddress)
		if err != nil {
			return nil, err
		}
		rec.Fields = append(rec.Fields, field)
	}

	return rec, nil
}

// decodeField parses one directory entry at entryOff and the field
// bytes it points at.
func decodeField(data []byte, entryOff, base int) (Field, error) {
	var f Field

	tag := data[entryOff : entryOff+3]
	for i, c := range tag {
		if !isTagByte(c) {
			return f, parseErr(ErrEncoding, entryOff+i, "tag is not alphanumeric ASCII")
		}
	}
	f.Tag = string(tag)

	flen, ok := atoiFixed(data[entryOff+3 : entryOff+7])
	if !ok {
		return f, parseErr(ErrEncoding, entryOff+3, "field length is not 4 ASCII digits")
	}
	fstart, ok := atoiFixed(data[entryOff+7 : entryOff+12])
	if !ok {
		return f, parseErr(ErrEncoding, entryOff+7, "field offset is not 5 ASCII digits")
	}
	if flen == 0 {
		return f, parseErr(ErrEncoding, entryOff+3, "field length is zero")
	}

	start := base + fstart
	end := start + flen
	// The last byte of the record is its terminator; no field may
	// reach it.
	if end > len(data)-1 {
		return f, &ParseError{
			Err:      ErrTruncatedRecord,
			Offset:   start,
			Expected: end,
			Actual:   len(data) - 1,
			Detail:   "field extends past record end",
		}
	}
	if data[end-1] != FieldTerminator {
		return f, parseErr(ErrMissingTerminator, end-1, "field terminator")
	}

	content := data[start : end-1]
	if f.IsControl() {
		f.Value = string(content)
		return f, nil
	}

	if len(content) < 2 {
		return f, parseErr(ErrEncoding, start, "data field missing indicator pair")
	}
	if !isIndicator(content[0]) || !isIndicator(content[1]) {
		return f, parseErr(ErrEncoding, start, "indicator is not printable ASCII")
	}
	f.Ind1 = content[0]
	f.Ind2 = content[1]

	rest := content[2:]
	if len(rest) == 0 {
		return f, nil
	}
	if rest[0] != SubfieldDelimiter {
		return f, parseErr(ErrEncoding, start+2, "expected subfield delimiter after indicators")
	}

	segments := bytes.Split(rest[1:], []byte{SubfieldDelimiter})
	f.Subfields = make([]Subfield, 0, len(segments))
	for _, seg := range segments {
		if len(seg) == 0 {
			return f, parseErr(ErrEncoding, start, "subfield missing code")
		}
		f.Subfields = append(f.Subfields, Subfield{
			Code:  seg[0],
			Value: string(seg[1:]),
		})
	}

	return f, nil
}

func isIndicator(c byte) bool {
	return c >= 0x20 && c <= 0x7E
}

func isTagByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	}
	return false
}
