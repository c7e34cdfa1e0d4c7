package validation

import (
	"fmt"
	"strings"
	"unicode"
)

// Константы валидации
const (
	MinPhoneLength = 10
	MaxPhoneLength = 16
	OTPCodeLength  = 6
)

// NormalizePhone убирает пробелы, скобки и дефисы из номера.
// Ведущий "+" сохраняется, 8XXXXXXXXXX приводится к +7XXXXXXXXXX.
func NormalizePhone(phone string) string {
	replacer := strings.NewReplacer(" ", "", "(", "", ")", "", "-", "")
	phone = replacer.Replace(strings.TrimSpace(phone))

	if len(phone) == 11 && strings.HasPrefix(phone, "8") {
		phone = "+7" + phone[1:]
	}

	return phone
}

// ValidatePhone проверяет формат номера телефона.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("номер телефона обязателен")
	}

	if len(phone) < MinPhoneLength {
		return fmt.Errorf("номер телефона должен быть не менее %d символов", MinPhoneLength)
	}
	if len(phone) > MaxPhoneLength {
		return fmt.Errorf("номер телефона должен быть не более %d символов", MaxPhoneLength)
	}

	for i, r := range phone {
		if i == 0 && r == '+' {
			continue
		}
		if !unicode.IsDigit(r) {
			return fmt.Errorf("номер телефона содержит недопустимые символы")
		}
	}

	return nil
}

// ValidateOTPCode проверяет, что код состоит ровно из шести цифр.
func ValidateOTPCode(code string) error {
	if len(code) != OTPCodeLength {
		return fmt.Errorf("код подтверждения должен состоять из %d цифр", OTPCodeLength)
	}

	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("код подтверждения должен содержать только цифры")
		}
	}

	return nil
}
