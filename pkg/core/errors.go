// pkg/core/errors.go
package core

import "errors"

// ErrInvalidArgument is returned when a caller violates a contract:
// missing required collaborators or malformed input. The call aborts
// with no partial effect.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrInvalidName is returned when a path name is empty.
var ErrInvalidName = errors.New("invalid path name")

// ErrNotInitialized is returned when a required provider has not been
// registered before use.
var ErrNotInitialized = errors.New("not initialized")

// ErrInsufficientPoints is returned when a curve is requested from
// fewer than 2 points. Visually smooth output needs at least 4; callers
// should treat 2-3 point curves as a straight-segment fallback.
var ErrInsufficientPoints = errors.New("insufficient points for curve")
