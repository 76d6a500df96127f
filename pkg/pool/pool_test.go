package pool

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchud/marcstream/pkg/marc"
	"github.com/dchud/marcstream/pkg/scan"
)

// encodeStream builds n records back to back and returns the buffer
// plus their boundaries.
func encodeStream(t *testing.T, n int) ([]byte, []scan.Boundary) {
	t.Helper()
	var buf []byte
	for i := 0; i < n; i++ {
		rec := &marc.Record{Fields: []marc.Field{
			{Tag: "001", Value: fmt.Sprintf("rec%06d", i)},
			{Tag: "245", Ind1: '0', Ind2: '0', Subfields: []marc.Subfield{
				{Code: 'a', Value: fmt.Sprintf("Title %d", i)},
			}},
		}}
		data, err := marc.Encode(rec)
		require.NoError(t, err)
		buf = append(buf, data...)
	}
	boundaries := scan.Scan(buf)
	require.Len(t, boundaries, n)
	return buf, boundaries
}

func TestDecodeBatch_PreservesOrder(t *testing.T) {
	const n = 500
	data, boundaries := encodeStream(t, n)

	for _, workers := range []int{1, 2, 7, runtime.NumCPU(), n * 2} {
		results := DecodeBatch(boundaries, data, workers)
		require.Lenf(t, results, n, "workers=%d", workers)
		for i, res := range results {
			require.NoErrorf(t, res.Err, "workers=%d record=%d", workers, i)
			cn, _ := res.Record.ControlValue("001")
			assert.Equal(t, fmt.Sprintf("rec%06d", i), cn)
		}
	}
}

func TestDecodeBatch_Empty(t *testing.T) {
	assert.Empty(t, DecodeBatch(nil, nil, 4))
}

func TestDecodeBatch_IsolatedErrors(t *testing.T) {
	data, boundaries := encodeStream(t, 10)

	// Corrupt the middle record's length header.
	copy(data[boundaries[5].Offset:], "xxxxx")

	results := DecodeBatch(boundaries, data, 4)
	for i, res := range results {
		if i == 5 {
			require.Error(t, res.Err)
			assert.ErrorIs(t, res.Err, marc.ErrInvalidLengthHeader)
			assert.Nil(t, res.Record)
			continue
		}
		assert.NoErrorf(t, res.Err, "record %d must be unaffected", i)
	}
}

func TestDecodeBatch_RecoversFaults(t *testing.T) {
	data, boundaries := encodeStream(t, 3)

	// A boundary pointing past the buffer would panic the slicing
	// worker; the pool must convert that into a per-record error.
	boundaries[1].Length = len(data) * 2

	results := DecodeBatch(boundaries, data, 2)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[2].Err)

	require.Error(t, results[1].Err)
	assert.ErrorIs(t, results[1].Err, marc.ErrEncoding)
	assert.Contains(t, results[1].Err.Error(), "decoder fault")
}

func TestDefaultWorkers(t *testing.T) {
	t.Setenv(WorkersEnv, "")
	assert.Equal(t, runtime.NumCPU(), DefaultWorkers())

	t.Setenv(WorkersEnv, "3")
	assert.Equal(t, 3, DefaultWorkers())

	t.Setenv(WorkersEnv, "not-a-number")
	assert.Equal(t, runtime.NumCPU(), DefaultWorkers())

	t.Setenv(WorkersEnv, "-2")
	assert.Equal(t, runtime.NumCPU(), DefaultWorkers())
}
