package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash сравнивается с паролем, когда пользователь не найден,
// чтобы время ответа не выдавало существование email
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("restaurant-auth-dummy-password"), bcrypt.DefaultCost)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("не удалось создать хэш пароля: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck : выполняет сравнение с фиктивным хэшем
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
