package service

import "errors"

var (
	ErrInvalidDeviceID    = errors.New("device_id is required")
	ErrInvalidCardID      = errors.New("card_uid is required")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
)
