package service

import (
	"errors"

	"github.com/wikifarm/farmd/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}

func isAlreadyExists(err error) bool {
	return errors.Is(err, domain.ErrAlreadyExists)
}
