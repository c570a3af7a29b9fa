// Package money содержит преобразование денежных сумм между внешним
// представлением (число с двумя знаками после запятой) и внутренним
// (целые сантимы).
package money

import (
	"errors"
	"math"
)

// ErrInvalidAmount возвращается для сумм, которые не являются положительным
// конечным числом.
var ErrInvalidAmount = errors.New("invalid amount")

// ToCents преобразует сумму в сантимы с обычным округлением до двух знаков.
func ToCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}

	cents := int64(math.Round(amount * 100))
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}

	return cents, nil
}

// FromCents преобразует сантимы во внешнее представление суммы.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}

// Round2 округляет значение до двух знаков после запятой.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
