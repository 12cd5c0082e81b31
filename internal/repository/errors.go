// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// string-matching driver errors.
package repository

import "errors"

// ErrEmailExists is returned when an insert collides with the unique
// email index. Handlers should translate this into an HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is returned when a role or permission insert collides
// with its unique name index. Handlers should translate this into an
// HTTP 409.
var ErrNameExists = errors.New("name already exists")

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")
