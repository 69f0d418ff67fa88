package handler

import (
	"fmt"
)

func ErrHandlerUnmarshal(err error) error {
	return fmt.Errorf("failed to unmarshal payload: %w", err)
}

func ErrHandlerInvalidPayload(err error) error {
	return fmt.Errorf("invalid payload: %w", err)
}
