package tablestore

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHMACSHA1_KnownVector pins the primitive this package's signing builds
// on against the textbook test vector.
func TestHMACSHA1_KnownVector(t *testing.T) {
	mac := hmac.New(sha1.New, []byte("key"))
	mac.Write([]byte("The quick brown fox jumps over the lazy dog"))
	got := strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
	assert.Equal(t, "DE7C9B85B8B78AA6BC8A7A36F70A90701C9DB4D9", got)
}

// TestMD5AndBase64_KnownVector pins the content-md5 primitive (MD5 of the
// body, base64 of the 36-byte source string) against known digests.
func TestMD5AndBase64_KnownVector(t *testing.T) {
	const plain = "abcdefghijklmnopqrstuvwxyz0123456789"
	sum := md5.Sum([]byte(plain))
	gotHex := strings.ToUpper(hex.EncodeToString(sum[:]))
	assert.Equal(t, "6D2286301265512F019781CC0CE7A39F", gotHex)
	assert.Equal(t, "YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXowMTIzNDU2Nzg5", base64.StdEncoding.EncodeToString([]byte(plain)))
}

func TestCanonicalHeaders_SortsAndFiltersOtsOnly(t *testing.T) {
	headers := map[string]string{
		"x-ots-date":         "d",
		"x-ots-apiversion":   "v",
		"Content-Type":       "application/x-protobuf",
		"x-ots-accesskeyid":  "ak",
	}
	got := canonicalHeaders(headers)
	assert.Equal(t, "x-ots-accesskeyid:ak\nx-ots-apiversion:v\nx-ots-date:d\n", got)
}

func TestSigner_Sign_ProducesRequiredHeadersAndMatchingSignature(t *testing.T) {
	s := newSigner("ak", "secret", "")
	body := []byte("protobuf-body")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	headers := s.sign("/GetRow", "POST", body, map[string]string{headerInstanceName: "my-instance"}, now)

	require.Contains(t, headers, headerAPIVersion)
	require.Contains(t, headers, headerDate)
	require.Contains(t, headers, headerAccessKeyID)
	require.Contains(t, headers, headerContentMD5)
	require.Contains(t, headers, headerSignature)
	require.Contains(t, headers, headerInstanceName)
	assert.Equal(t, apiVersion, headers[headerAPIVersion])
	assert.Equal(t, "my-instance", headers[headerInstanceName])

	sum := md5.Sum(body)
	assert.Equal(t, base64.StdEncoding.EncodeToString(sum[:]), headers[headerContentMD5])

	cs := canonicalString("/GetRow", "POST", headers)
	mac := hmac.New(sha1.New, []byte("secret"))
	mac.Write([]byte(cs))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	assert.Equal(t, want, headers[headerSignature])
}

func TestSigner_Sign_IncludesSecurityTokenWhenSet(t *testing.T) {
	s := newSigner("ak", "secret", "sts-token")
	headers := s.sign("/GetRow", "POST", nil, map[string]string{headerInstanceName: "my-instance"}, time.Now())
	assert.Equal(t, "sts-token", headers[headerSecurityToken])
}

// TestSigner_Sign_InstanceNameIsPartOfCanonicalString pins down the bug this
// test is written to catch: x-ots-instancename must be signed, not appended
// after the signature is computed, or the server rejects every request.
func TestSigner_Sign_InstanceNameIsPartOfCanonicalString(t *testing.T) {
	s := newSigner("ak", "secret", "")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	headers := s.sign("/GetRow", "POST", []byte("body"), map[string]string{headerInstanceName: "instance-a"}, now)
	cs := canonicalString("/GetRow", "POST", headers)
	assert.Contains(t, cs, "x-ots-instancename:instance-a\n")

	other := s.sign("/GetRow", "POST", []byte("body"), map[string]string{headerInstanceName: "instance-b"}, now)
	assert.NotEqual(t, headers[headerSignature], other[headerSignature],
		"signature must change when the signed instance name changes")
}

func TestVerifyResponse_ContentMD5Mismatch(t *testing.T) {
	now := time.Now()
	headers := map[string]string{
		headerContentMD5: "bm90LXRoZS1yZWFsLW1kNQ==",
		headerDate:       now.UTC().Format(dateLayout),
	}
	err := verifyResponse(headers, []byte("body"), now)
	require.Error(t, err)
	tsErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, StatusCorruptedResponse, tsErr.HTTPStatus)
}

func TestVerifyResponse_OKWithinSkew(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	body := []byte("body")
	sum := md5.Sum(body)
	headers := map[string]string{
		headerContentMD5: base64.StdEncoding.EncodeToString(sum[:]),
		headerDate:       now.Add(5 * time.Minute).Format(dateLayout),
	}
	err := verifyResponse(headers, body, now)
	assert.NoError(t, err)
}

func TestVerifyResponse_ClockSkewTooLarge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	body := []byte("body")
	sum := md5.Sum(body)
	headers := map[string]string{
		headerContentMD5: base64.StdEncoding.EncodeToString(sum[:]),
		headerDate:       now.Add(16 * time.Minute).Format(dateLayout),
	}
	err := verifyResponse(headers, body, now)
	require.Error(t, err)
	tsErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, StatusCorruptedResponse, tsErr.HTTPStatus)
}
