package source

import "errors"

var (
	// ErrUnknownFormat is returned for a catalog format with no decoder.
	ErrUnknownFormat = errors.New("unknown catalog format")
	// ErrDecode wraps malformed catalog or lookup documents.
	ErrDecode = errors.New("decode catalog")
)
