package utils

import "errors"

var (
	ErrInvalidFile    = errors.New("invalid file")
	ErrUploadFailed   = errors.New("file upload failed")
	ErrStorageFailure = errors.New("storage backend failure")
)
