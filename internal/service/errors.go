package service

import "errors"

// Business errors surfaced to the HTTP layer. The handler package maps
// each to a status code; anything unrecognized becomes a 500.
var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrVersionNotFound      = errors.New("version not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrForbidden            = errors.New("caller does not have access to this project")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: username or email already exists")
	ErrAlreadyCollaborator  = errors.New("user is already a collaborator on this project")
	ErrInvalidRole          = errors.New("invalid collaborator role")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInternalServer       = errors.New("internal server error")
)
