package tablestore

import (
	"bytes"
	"compress/flate"
	"io"

	"github.com/pkg/errors"
)

// deflateCompress returns data deflate-compressed, per spec §6's optional
// request-compression negotiation. compress/flate is stdlib here because
// deflate is a fixed wire format named by the protocol itself, not a
// pluggable concern a third-party codec library would abstract further.
func deflateCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, errors.Wrap(err, "deflate: new writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, "deflate: write")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "deflate: close")
	}
	return buf.Bytes(), nil
}

// deflateDecompress inflates data and checks the result is exactly wantSize
// bytes, matching the original implementation's ValidateContentMD5-then-
// decompress-then-size-check sequence for a compressed response.
func deflateDecompress(data []byte, wantSize int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "inflate")
	}
	if len(out) != wantSize {
		return nil, errors.Errorf("decompressed size %d does not match declared size %d", len(out), wantSize)
	}
	return out, nil
}
