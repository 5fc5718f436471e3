package engine

import "errors"

// ErrDisposed is returned by every operation after Dispose.
var ErrDisposed = errors.New("engine disposed")
