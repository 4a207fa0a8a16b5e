package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/davidleathers/advice-risk-scorer/internal/domain/registry"
)

// Common repository errors
var (
	ErrNotFound     = registry.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

// IsNotFound checks if the error indicates a record was not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

// WrapRepositoryError maps empty results onto ErrNotFound and adds the
// operation name to everything else
func WrapRepositoryError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if IsNotFound(err) {
		return ErrNotFound
	}

	return fmt.Errorf("%s: %w", operation, err)
}
