package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"github.com/Jinomee/jURL/internal/repository"
)

// Константы генератора кодов
const (
	codeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
	maxAttempts = 5

	minCustomCodeLength = 3
	maxCustomCodeLength = 20
)

var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9-_]+$`)

// CodeGenerator выдаёт уникальные короткие коды и валидирует кастомные.
// Уникальность проверяется по БД, не по кэшу: кэш — неавторитетное
// подмножество и для проверки занятости кода непригоден.
type CodeGenerator struct {
	repo repository.MappingRepository
}

func NewCodeGenerator(repo repository.MappingRepository) *CodeGenerator {
	return &CodeGenerator{repo: repo}
}

// Generate возвращает случайный код заданной длины, свободный в БД.
// Пространство кодов 64^length, коллизии редки, но путь retry+отказ
// обязан существовать: после maxAttempts занятых кодов возвращается
// ErrCodeGenerationExhausted.
func (g *CodeGenerator) Generate(ctx context.Context, length int) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomCode(length)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}

		exists, err := g.repo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check code collision: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", ErrCodeGenerationExhausted
}

// ValidateCustomCode проверяет кастомный код по правилам в строгом
// порядке: непустой → алфавит → длина → занятость. Возвращается
// первое нарушенное правило (short-circuit).
func (g *CodeGenerator) ValidateCustomCode(ctx context.Context, code string) error {
	if code == "" {
		return &ValidationError{Field: "custom_code", Message: "Custom code cannot be empty"}
	}

	if !customCodePattern.MatchString(code) {
		return &ValidationError{
			Field:   "custom_code",
			Message: "Custom code can only contain letters, numbers, hyphens, and underscores",
		}
	}

	if len(code) < minCustomCodeLength || len(code) > maxCustomCodeLength {
		return &ValidationError{
			Field:   "custom_code",
			Message: "Custom code must be between 3 and 20 characters long",
		}
	}

	exists, err := g.repo.CodeExists(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to check custom code availability: %w", err)
	}
	if exists {
		return &ValidationError{Field: "custom_code", Message: "This custom code is already in use"}
	}

	return nil
}

// randomCode генерирует код через crypto/rand
func randomCode(length int) (string, error) {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		result[i] = codeCharset[num.Int64()]
	}
	return string(result), nil
}
