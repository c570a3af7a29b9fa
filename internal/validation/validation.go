// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const walletNumberPrefix = "SP-"

// IsValidWalletNumber проверяет формат номера кошелька: префикс SP- и
// непустой цифровой суффикс.
func IsValidWalletNumber(number string) bool {
	if !strings.HasPrefix(number, walletNumberPrefix) {
		return false
	}

	suffix := number[len(walletNumberPrefix):]
	if suffix == "" {
		return false
	}

	for _, ch := range suffix {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}

var validate = validator.New()

// Struct валидирует структуру по validate-тегам её полей.
func Struct(s any) error {
	return validate.Struct(s)
}
