package model

import "github.com/pkg/errors"

var (
	errTooManyAllowedUsers = errors.New("storage: too many allowed users for prefix")
	errOwnerInAllowedUsers = errors.New("storage: prefix owner must not be listed in allowed users")
)
