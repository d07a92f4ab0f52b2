package service

import "errors"

var (
	ErrNotFound             = errors.New("error not found")
	ErrValidation           = errors.New("error validation")
	ErrCloudStorageDisabled = errors.New("error cloud storage is not configured")
)
