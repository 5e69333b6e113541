package cooplock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRecord_Delete(t *testing.T) {
	rec := NewDeleteRecord("a/b/", 1584693912)

	data, err := EncodeRecord(rec)
	require.NoError(t, err)

	assert.Equal(t,
		`{"kind":"delete","lockEpochSeconds":1584693912,"resource":"a/b/"}`+"\n",
		string(data))
}

func TestEncodeRecord_Rename(t *testing.T) {
	rec := NewRenameRecord("a/", "b/", 1584693912)

	data, err := EncodeRecord(rec)
	require.NoError(t, err)

	assert.Equal(t,
		`{"kind":"rename","lockEpochSeconds":1584693912,"srcResource":"a/","dstResource":"b/","copySucceeded":false}`+"\n",
		string(data))
}

func TestEncodeRecord_RenameCheckpointed(t *testing.T) {
	rec := NewRenameRecord("a/", "b/", 1584693912)
	rec.CopySucceeded = true

	data, err := EncodeRecord(rec)
	require.NoError(t, err)

	// copySucceeded=true must survive encoding; it is the checkpoint flag
	assert.Contains(t, string(data), `"copySucceeded":true`)
}

func TestDecodeRecord_RoundTrip(t *testing.T) {
	t.Run("delete", func(t *testing.T) {
		orig := NewDeleteRecord("dir/", 1700000000)
		data, err := EncodeRecord(orig)
		require.NoError(t, err)

		dec, err := DecodeRecord(data)
		require.NoError(t, err)
		require.IsType(t, DeleteRecord{}, dec)
		assert.Equal(t, orig, dec)
	})

	t.Run("rename", func(t *testing.T) {
		orig := NewRenameRecord("src/", "dst/", 1700000000)
		orig.CopySucceeded = true
		data, err := EncodeRecord(orig)
		require.NoError(t, err)

		dec, err := DecodeRecord(data)
		require.NoError(t, err)
		require.IsType(t, RenameRecord{}, dec)
		assert.Equal(t, orig, dec)
	})
}

func TestDecodeRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "not a record"},
		{"empty object", "{}"},
		{"unknown kind", `{"kind":"move","lockEpochSeconds":1,"resource":"a/"}`},
		{"delete without resource", `{"kind":"delete","lockEpochSeconds":1}`},
		{"delete without epoch", `{"kind":"delete","resource":"a/"}`},
		{"rename without dst", `{"kind":"rename","lockEpochSeconds":1,"srcResource":"a/"}`},
		{"wrong field types", `{"kind":"delete","lockEpochSeconds":"soon","resource":"a/"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestWithEpoch(t *testing.T) {
	del := NewDeleteRecord("a/", 100)
	renewed := del.WithEpoch(200)
	assert.Equal(t, int64(200), renewed.Epoch())
	assert.Equal(t, int64(100), del.Epoch(), "original record must be unchanged")

	ren := NewRenameRecord("a/", "b/", 100)
	ren.CopySucceeded = true
	renewed = ren.WithEpoch(300)
	assert.Equal(t, int64(300), renewed.Epoch())
	assert.True(t, renewed.(RenameRecord).CopySucceeded, "checkpoint flag must survive renewal")
}

func TestDeleteLog_RoundTrip(t *testing.T) {
	paths := []string{"a/", "a/file1", "a/sub/", "a/sub/file2"}

	data := EncodeDeleteLog(paths)
	assert.Equal(t, "a/\na/file1\na/sub/\na/sub/file2\n", string(data))

	decoded := DecodeDeleteLog(data)
	assert.Equal(t, paths, decoded)
}

func TestDeleteLog_Empty(t *testing.T) {
	assert.Empty(t, DecodeDeleteLog(nil))
	assert.Empty(t, DecodeDeleteLog([]byte("\n\n")))
}

func TestRenameLog_RoundTrip(t *testing.T) {
	pairs := []RenamePair{
		{Src: "a/", Dst: "b/"},
		{Src: "a/file1", Dst: "b/file1"},
		{Src: "a/sub/file2", Dst: "b/sub/file2"},
	}

	data := EncodeRenameLog(pairs)
	assert.Equal(t, "a/ -> b/\na/file1 -> b/file1\na/sub/file2 -> b/sub/file2\n", string(data))

	decoded, err := DecodeRenameLog(data)
	require.NoError(t, err)
	assert.Equal(t, pairs, decoded)
}

func TestRenameLog_Malformed(t *testing.T) {
	_, err := DecodeRenameLog([]byte("a/file1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedLog)
}
