package tools

import "errors"

var (
	ErrToolNil               = errors.New("tool is nil")
	ErrToolNameEmpty         = errors.New("tool name is empty")
	ErrToolNoExecute         = errors.New("tool has no execute function")
	ErrToolNoDescription     = errors.New("tool has no description")
	ErrToolAlreadyRegistered = errors.New("tool already registered")
)
