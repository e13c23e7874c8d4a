package models

import "errors"

// Error kinds. Components wrap one of these so callers can classify with errors.Is.
var (
	// ErrValidation means required input was missing; no iteration is attempted.
	ErrValidation = errors.New("validation error")
	// ErrUpstream means the completion or image service failed or returned an unexpected shape.
	ErrUpstream = errors.New("upstream error")
	// ErrTransfer means the rendered image bytes could not be downloaded.
	ErrTransfer = errors.New("transfer error")
	// ErrStorage means the object store write failed.
	ErrStorage = errors.New("storage error")
)
