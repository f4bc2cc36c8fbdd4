package service_test

import (
	"context"
	"testing"

	"github.com/Jinomee/jURL/internal/service"
	"github.com/Jinomee/jURL/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCodeGenerator_Generate коды нужной длины из допустимого алфавита,
// без повторов на разумной выборке
func TestCodeGenerator_Generate(t *testing.T) {
	repo := mocks.NewMockMappingRepository()
	generator := service.NewCodeGenerator(repo)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generator.Generate(ctx, 6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		assert.Regexp(t, `^[A-Za-z0-9_-]+$`, code)
		assert.NotContains(t, seen, code, "коды должны быть уникальными")
		seen[code] = true
	}
}

// TestCodeGenerator_Exhausted все попытки коллидируют — после
// исчерпания бюджета retry возвращается типизированная ошибка
func TestCodeGenerator_Exhausted(t *testing.T) {
	repo := mocks.NewMockMappingRepository()
	repo.AllCodesTaken = true
	generator := service.NewCodeGenerator(repo)

	_, err := generator.Generate(context.Background(), 6)
	assert.ErrorIs(t, err, service.ErrCodeGenerationExhausted)
}

// TestCodeGenerator_ValidateCustomCode правила проверяются по порядку,
// возвращается первое нарушенное (short-circuit)
func TestCodeGenerator_ValidateCustomCode(t *testing.T) {
	repo := mocks.NewMockMappingRepository()
	generator := service.NewCodeGenerator(repo)
	ctx := context.Background()

	cases := []struct {
		name    string
		code    string
		wantMsg string
	}{
		{"empty", "", "cannot be empty"},
		// Алфавит проверяется раньше длины: "a!" нарушает оба правила
		{"bad charset before length", "a!", "letters, numbers, hyphens, and underscores"},
		{"too short", "ab", "between 3 and 20 characters"},
		{"too long", "abcdefghijklmnopqrstu", "between 3 and 20 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := generator.ValidateCustomCode(ctx, tc.code)
			require.Error(t, err)

			ve, ok := service.AsValidationError(err)
			require.True(t, ok)
			assert.Equal(t, "custom_code", ve.Field)
			assert.Contains(t, ve.Message, tc.wantMsg)
		})
	}

	// Валидный и свободный код проходит
	assert.NoError(t, generator.ValidateCustomCode(ctx, "my-code_42"))
}

// TestCodeGenerator_ValidateCustomCode_Taken занятость проверяется
// по хранилищу последним правилом
func TestCodeGenerator_ValidateCustomCode_Taken(t *testing.T) {
	repo := mocks.NewMockMappingRepository()
	repo.AllCodesTaken = true
	generator := service.NewCodeGenerator(repo)

	err := generator.ValidateCustomCode(context.Background(), "anything")
	require.Error(t, err)

	ve, ok := service.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "already in use")
}
