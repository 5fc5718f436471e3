package selection

import "errors"

// ErrNoCandidates is returned when the view holds no selectable item.
var ErrNoCandidates = errors.New("no candidate items")
