package backend

import "errors"

// ErrNotFound is returned by Store.UpdateCard when no row matches.
var ErrNotFound = errors.New("not found")
