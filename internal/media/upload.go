package media

import (
	"bytes"
	"fmt"
	"io"
)

// ReadLimited reads at most maxBytes from reader. It fails with
// ErrAssetTooLarge when more data follows and ErrEmptyAsset when none does.
func ReadLimited(reader io.Reader, maxBytes int64) ([]byte, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader is required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be greater than 0")
	}
	var buf bytes.Buffer
	limited := &io.LimitedReader{R: reader, N: maxBytes + 1}
	written, err := io.Copy(&buf, limited)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if written > maxBytes {
		return nil, fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, maxBytes)
	}
	if written == 0 {
		return nil, ErrEmptyAsset
	}
	return buf.Bytes(), nil
}
