//go:build fuzz
// +build fuzz

package marc

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

// FuzzDecode asserts the decoder's core promise on arbitrary bytes: it
// returns a record or a *ParseError, and it never panics. Records that
// do decode must survive an encode/decode round trip semantically
// (byte equality is only guaranteed for canonical layouts, and the
// fuzzer is free to invent overlapping directory entries).
func FuzzDecode(f *testing.F) {
	empty, err := Encode(&Record{})
	if err != nil {
		f.Fatal(err)
	}
	full, err := Encode(&Record{Fields: []Field{
		{Tag: "001", Value: "fz0001"},
		{Tag: "245", Ind1: '0', Ind2: '0', Subfields: []Subfield{
			{Code: 'a', Value: "Fuzzing"},
		}},
	}})
	if err != nil {
		f.Fatal(err)
	}

	f.Add(empty)
	f.Add(full)
	f.Add([]byte("00005"))
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0x1D}, 64))

	f.Fuzz(func(t *testing.T, data []byte) {
		rec, err := Decode(data)
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("decode error is not a *ParseError: %v", err)
			}
			return
		}

		reencoded, err := Encode(rec)
		if err != nil {
			t.Fatalf("re-encode of valid record failed: %v", err)
		}
		again, err := Decode(reencoded)
		if err != nil {
			t.Fatalf("decode of re-encoded record failed: %v", err)
		}
		if !reflect.DeepEqual(rec.Fields, again.Fields) {
			t.Fatalf("round trip changed fields:\n in: %#v\nout: %#v", rec.Fields, again.Fields)
		}
	})
}

// FuzzEncodeDecode builds records from fuzzer-chosen field content and
// checks the round trip preserves it exactly.
func FuzzEncodeDecode(f *testing.F) {
	f.Add("ocm123", "Some title", "b")
	f.Add("", "", "")

	f.Fuzz(func(t *testing.T, cn, title, sub string) {
		if len(cn) > 5000 || len(title) > 5000 || len(sub) > 5000 {
			t.Skip("input too large")
		}
		if bytes.ContainsAny([]byte(cn+title+sub), "\x1d\x1e\x1f") {
			t.Skip("field content may not contain wire delimiters")
		}

		rec := &Record{Fields: []Field{
			{Tag: "001", Value: cn},
			{Tag: "245", Ind1: '1', Ind2: '0', Subfields: []Subfield{
				{Code: 'a', Value: title},
				{Code: 'b', Value: sub},
			}},
		}}

		data, err := Encode(rec)
		if err != nil {
			if len(title)+len(sub) > MaxFieldLength-10 || len(cn) > MaxFieldLength-1 {
				return // legitimately oversized
			}
			t.Fatalf("encode failed: %v", err)
		}

		decoded, err := Decode(data)
		if err != nil {
			t.Fatalf("decode of encoded record failed: %v", err)
		}
		got, _ := decoded.ControlValue("001")
		if got != cn {
			t.Fatalf("control number changed: %q != %q", got, cn)
		}
		gotTitle, _ := decoded.FieldsByTag("245")[0].Subfield('a')
		if gotTitle != title {
			t.Fatalf("title changed: %q != %q", gotTitle, title)
		}
	})
}
