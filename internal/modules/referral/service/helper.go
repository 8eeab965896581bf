package service

import (
	"errors"

	"pooltap.app/earnhub/pkg/apperror"
)

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
