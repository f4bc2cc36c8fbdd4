package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки аутентификации. Наружу обе превращаются в 401 — детали
// не раскрываем, различие нужно только для логов.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAuthNotConfigured  = errors.New("admin authentication is not configured")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Фиксированный субъект токена: админ в системе один
const adminSubject = "admin"

// Auth проверяет пароль администратора и выдаёт подписанные токены.
// Ядро сервиса доверяет этому шлюзу и своих проверок прав не делает.
type Auth interface {
	// Login проверяет пароль и возвращает токен сессии
	Login(password string) (string, error)
	// Verify проверяет токен и возвращает субъект (identity claim)
	Verify(token string) (string, error)
}

type authService struct {
	passwordHash string
	secret       []byte
	tokenTTL     time.Duration
	now          func() time.Time
}

func NewAuth(passwordHash, secret string, tokenTTL time.Duration) Auth {
	return NewAuthWithClock(passwordHash, secret, tokenTTL, time.Now)
}

// NewAuthWithClock вариант с внешними часами для тестов истечения токена
func NewAuthWithClock(passwordHash, secret string, tokenTTL time.Duration, now func() time.Time) Auth {
	return &authService{
		passwordHash: passwordHash,
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		now:          now,
	}
}

// Login сравнивает пароль с настроенным bcrypt-хэшем.
// Если хэш не задан, вход всегда отклоняется: запасного пароля
// по умолчанию здесь намеренно нет.
func (a *authService) Login(password string) (string, error) {
	if a.passwordHash == "" {
		return "", ErrAuthNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	expiresAt := a.now().Add(a.tokenTTL).Unix()
	payload := fmt.Sprintf("%s:%d", adminSubject, expiresAt)

	return payload + ":" + a.sign(payload), nil
}

// Verify разбирает токен вида subject:expiry:signature, сверяет
// подпись и срок действия
func (a *authService) Verify(token string) (string, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 3 {
		return "", ErrInvalidToken
	}

	payload := parts[0] + ":" + parts[1]
	if !hmac.Equal([]byte(a.sign(payload)), []byte(parts[2])) {
		return "", ErrInvalidToken
	}

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || a.now().Unix() >= expiresAt {
		return "", ErrInvalidToken
	}

	return parts[0], nil
}

func (a *authService) sign(payload string) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
