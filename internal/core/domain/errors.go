package domain

import "errors"

// ErrNoReport is returned by report caches before the first run completes.
var ErrNoReport = errors.New("no report yet")
