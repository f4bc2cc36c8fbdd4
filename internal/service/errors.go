package service

import (
	"errors"
	"fmt"
)

// Ошибки бизнес-слоя. NotFound и Expired различаются намеренно:
// UI показывает для них разные страницы восстановления.
var (
	ErrNotFound                = errors.New("short link not found")
	ErrExpired                 = errors.New("short link has expired")
	ErrCodeGenerationExhausted = errors.New("failed to generate a unique short code after multiple attempts")
)

// ValidationError ошибка валидации с указанием поля
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AsValidationError вспомогательная проверка для обработчиков
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
