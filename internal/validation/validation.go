// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PasswordMinLength = 12
	PasswordMaxLength = 64
	PhoneLength       = 8
	ProductNameMin    = 3
)

// IsValidEmail проверяет, что строка является одиночным адресом электронной почты без отображаемого имени.
func IsValidEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email && strings.Contains(addr.Address, "@")
}

// IsValidPassword проверяет длину пароля.
func IsValidPassword(password string) bool {
	n := utf8.RuneCountInString(password)
	return n >= PasswordMinLength && n <= PasswordMaxLength
}

// IsValidPhone проверяет, что номер состоит ровно из восьми цифр.
func IsValidPhone(phone string) bool {
	if len(phone) != PhoneLength {
		return false
	}
	for _, ch := range phone {
		if !unicode.IsDigit(ch) {
			return false
		}
	}
	return true
}

// IsValidPercent проверяет, что процент скидки лежит в диапазоне 0..100.
func IsValidPercent(p int) bool {
	return p >= 0 && p <= 100
}

// Errors накапливает ошибки по полям запроса.
type Errors map[string]string

// Check добавляет сообщение для поля, если условие не выполнено. Первая ошибка поля сохраняется.
func (e Errors) Check(ok bool, field, message string) {
	if ok {
		return
	}
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// Empty сообщает, что ошибок нет.
func (e Errors) Empty() bool {
	return len(e) == 0
}
