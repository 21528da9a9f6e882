package domain

import "errors"

var (
	ErrNotFound      = errors.New("prediction not found")
	ErrAlreadyExists = errors.New("prediction already exists")
	ErrInvalidInput  = errors.New("invalid input")
)
