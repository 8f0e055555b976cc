package auth

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 64

	// Character classes a password must mix, out of upper, lower, digit and symbol
	RequiredCharClasses = 3

	otpHashCost = bcrypt.DefaultCost
)

var phoneValidator = validator.New()

// Common weak passwords rejected regardless of composition
var commonPasswords = map[string]bool{
	"password1!":  true,
	"password123": true,
	"p@ssw0rd":    true,
	"passw0rd!":   true,
	"welcome1!":   true,
	"qwerty123!":  true,
	"letmein1!":   true,
	"admin123!":   true,
	"changeme1!":  true,
}

// IsStrongPassword reports whether a password satisfies the identity provider's
// complexity policy, so that weak passwords are refused before the provider call.
func IsStrongPassword(password string) bool {
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return false
	}
	if commonPasswords[strings.ToLower(password)] {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		case unicode.IsSpace(r):
			return false
		}
	}

	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if ok {
			classes++
		}
	}
	return classes >= RequiredCharClasses
}

// NormalizeMobileNumber strips the separators people type into phone numbers.
func NormalizeMobileNumber(number string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(number))
}

// IsValidMobileNumber accepts 10 to 15 digits with an optional leading '+'.
func IsValidMobileNumber(number string) bool {
	digits := strings.TrimPrefix(NormalizeMobileNumber(number), "+")
	return phoneValidator.Var(digits, "required,numeric,min=10,max=15") == nil
}

// HashCode hashes a one-time code for storage.
func HashCode(code int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(strconv.Itoa(code)), otpHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hashed), nil
}

// CodeMatches compares a stored hash with a submitted code in constant time.
func CodeMatches(hash string, code int) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(strconv.Itoa(code))) == nil
}
