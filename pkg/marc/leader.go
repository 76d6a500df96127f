package marc

// Leader is the fixed 24-byte structure that opens every record.
// Byte positions follow the MARC 21 bibliographic leader layout.
type Leader struct {
	Length         int     // 00-04: record length, 5 ASCII digits
	Status         byte    // 05: record status
	Type           byte    // 06: type of record
	BibLevel       byte    // 07: bibliographic level
	ControlType    byte    // 08: type of control
	CodingScheme   byte    // 09: character coding scheme
	IndicatorCount int     // 10: always 2 in MARC 21
	SubfieldCodes  int     // 11: subfield code length, always 2 in MARC 21
	BaseAddress    int     // 12-16: base address of field data, 5 ASCII digits
	EncodingLevel  byte    // 17: encoding level
	CatalogingForm byte    // 18: descriptive cataloging form
	MultipartLevel byte    // 19: multipart resource record level
	EntryMap       [4]byte // 20-23: directory entry map, "4500" in MARC 21
}

// ParseLeader decodes and validates the first LeaderLength bytes of a
// record. A malformed leader is terminal for that record only.
func ParseLeader(data []byte) (Leader, error) {
	var l Leader

	if len(data) < LeaderLength {
		return l, &ParseError{
			Err:      ErrTruncatedRecord,
			Offset:   0,
			Expected: LeaderLength,
			Actual:   len(data),
			Detail:   "record shorter than leader",
		}
	}

	length, ok := atoiFixed(data[0:5])
	if !ok {
		return l, parseErr(ErrInvalidLengthHeader, 0, "length is not 5 ASCII digits")
	}
	if length == 0 {
		return l, parseErr(ErrInvalidLengthHeader, 0, "length is zero")
	}
	l.Length = length

	l.Status = data[5]
	l.Type = data[6]
	l.BibLevel = data[7]
	l.ControlType = data[8]
	l.CodingScheme = data[9]

	// MARC 21 fixes both widths at 2. Anything else would shift every
	// data field's indicator pair and subfield parsing.
	if data[10] != '2' {
		return l, parseErr(ErrInvalidLeader, 10, "indicator count must be 2")
	}
	if data[11] != '2' {
		return l, parseErr(ErrInvalidLeader, 11, "subfield code length must be 2")
	}
	l.IndicatorCount = 2
	l.SubfieldCodes = 2

	base, ok := atoiFixed(data[12:17])
	if !ok {
		return l, parseErr(ErrInvalidLeader, 12, "base address is not 5 ASCII digits")
	}
	// The smallest possible base address is the leader plus the
	// directory terminator.
	if base < LeaderLength+1 || base > length {
		return l, parseErr(ErrInvalidLeader, 12, "base address out of range")
	}
	l.BaseAddress = base

	l.EncodingLevel = data[17]
	l.CatalogingForm = data[18]
	l.MultipartLevel = data[19]
	copy(l.EntryMap[:], data[20:24])

	return l, nil
}

// Bytes reassembles the 24-byte leader. Length and BaseAddress are
// written from the struct fields, so Encode can refresh them after
// rebuilding the directory.
func (l Leader) Bytes() [LeaderLength]byte {
	var b [LeaderLength]byte
	putUintFixed(b[0:5], l.Length)
	b[5] = l.Status
	b[6] = l.Type
	b[7] = l.BibLevel
	b[8] = l.ControlType
	b[9] = l.CodingScheme
	b[10] = '2'
	b[11] = '2'
	putUintFixed(b[12:17], l.BaseAddress)
	b[17] = l.EncodingLevel
	b[18] = l.CatalogingForm
	b[19] = l.MultipartLevel
	copy(b[20:24], l.EntryMap[:])
	return b
}

// atoiFixed parses a fixed-width ASCII decimal number. Unlike
// strconv.Atoi it rejects signs, spaces, and anything outside '0'-'9'.
func atoiFixed(b []byte) (int, bool) {
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// putUintFixed writes n as zero-padded ASCII decimal filling b.
func putUintFixed(b []byte, n int) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte('0' + n%10)
		n /= 10
	}
}
