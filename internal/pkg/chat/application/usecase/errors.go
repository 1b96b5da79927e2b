package usecase

import (
	"errors"
	"fmt"

	"petchat/internal/infrastructure/logger"
	chat "petchat/internal/pkg/chat/application/domain"
)

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = fmt.Errorf("chat use case persistence error")

// ErrValidation marks malformed input rejected before touching the store
var ErrValidation = errors.New("chat use case validation error")

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// storeError logs a repository failure and wraps it in ErrPersistence.
// chat.ErrNotFound is a result, not a failure, and passes through untouched.
func storeError(op string, err error) error {
	if errors.Is(err, chat.ErrNotFound) {
		return err
	}
	logger.Error().Err(err).Str("usecase", op).Msg("repository call failed")
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}
