package errors

import "errors"

var (
	ErrTreeNotFound    = errors.New("tree was not found")
	ErrSessionNotFound = errors.New("session was not found")
	ErrInvalidChoice   = errors.New("choice is not an option of the current question")
	ErrEmptyUpload     = errors.New("uploaded file is empty")
	ErrUploadTooLarge  = errors.New("uploaded file is too large")
	ErrRequestTooLarge = errors.New("request body is too large")
	ErrTreeTooDeep     = errors.New("tree is nested too deeply to be stored")
	ErrInternal        = errors.New("internal error")
)
