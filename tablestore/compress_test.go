package tablestore

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeflateCompressDecompress_RoundTrip(t *testing.T) {
	original := []byte("row data payload, repeated repeated repeated for compressibility")
	compressed, err := deflateCompress(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, compressed)

	out, err := deflateDecompress(compressed, len(original))
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestDeflateDecompress_SizeMismatchIsError(t *testing.T) {
	compressed, err := deflateCompress([]byte("hello world"))
	require.NoError(t, err)
	_, err = deflateDecompress(compressed, 3)
	require.Error(t, err)
}

func TestDecompressIfNeeded_NoHeaderPassesThrough(t *testing.T) {
	body := []byte("plain body")
	out, err := decompressIfNeeded(map[string]string{}, body)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestDecompressIfNeeded_InflatesDeflateBody(t *testing.T) {
	original := []byte("row data payload for a compressed response")
	compressed, err := deflateCompress(original)
	require.NoError(t, err)

	headers := map[string]string{
		headerResponseCompressType: compressDeflate,
		headerResponseCompressSize: strconv.Itoa(len(original)),
	}

	out, err := decompressIfNeeded(headers, compressed)
	require.NoError(t, err)
	assert.Equal(t, original, out)
}

func TestDecompressIfNeeded_RejectsMisspelledDefalte(t *testing.T) {
	headers := map[string]string{
		headerResponseCompressType: "defalte",
		headerResponseCompressSize: "4",
	}
	_, err := decompressIfNeeded(headers, []byte("body"))
	require.Error(t, err)
}

func TestDecompressIfNeeded_MissingSizeHeaderIsError(t *testing.T) {
	headers := map[string]string{
		headerResponseCompressType: compressDeflate,
	}
	_, err := decompressIfNeeded(headers, []byte("body"))
	require.Error(t, err)
}
