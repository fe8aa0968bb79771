package configs

import "errors"

// ErrValueNotFound is returned by Loader.AssignFirst when no loaded root
// defines a value at the requested path.
var ErrValueNotFound = errors.New("value not found")
