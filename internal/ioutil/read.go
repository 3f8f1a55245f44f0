package ioutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrTooLarge is returned by ReadAll when the body does not fit the limit
var ErrTooLarge = errors.New("body exceeds read limit")

// ReadAll reads r to EOF but fails with ErrTooLarge once more than limit
// bytes arrive. A limit <= 0 disables the check.
func ReadAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrTooLarge, limit)
	}
	return body, nil
}

// Excerpt returns a copy of at most limit bytes of body, for inclusion in
// error values and logs
func Excerpt(body []byte, limit int) []byte {
	if limit >= 0 && len(body) > limit {
		body = body[:limit]
	}
	return append([]byte(nil), body...)
}
