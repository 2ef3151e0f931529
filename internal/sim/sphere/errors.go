package sphere

import "errors"

var (
	ErrPathNotFound = errors.New("path not found")
	ErrNotSeeded    = errors.New("roots not seeded")
	ErrSphereBusy   = errors.New("sphere busy")
)
