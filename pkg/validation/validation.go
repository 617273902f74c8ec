package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
)

const (
	MinThreads = 1
	MaxThreads = 20

	MinQuantity = 1
	MaxQuantity = 99
)

// PolicyTypes lists the policy documents the backend serves.
var PolicyTypes = []string{"privacy", "terms", "refund", "shipping"}

// PaymentMethods lists the payment methods accepted when placing an order.
var PaymentMethods = []string{"COD", "ONLINE"}

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fmt.Errorf("thread count must be between %d and %d, got %d", MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateQuantity(qty int) error {
	if qty < MinQuantity || qty > MaxQuantity {
		return fmt.Errorf("quantity must be between %d and %d, got %d", MinQuantity, MaxQuantity, qty)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address: %q", email)
	}
	return nil
}

// ValidatePincode accepts six-digit postal codes that do not start with zero.
func ValidatePincode(pin string) error {
	if len(pin) != 6 || pin[0] == '0' || !allDigits(pin) {
		return fmt.Errorf("invalid pincode: %s (must be 6 digits)", pin)
	}
	return nil
}

func ValidatePhone(phone string) error {
	if len(phone) != 10 || !allDigits(phone) {
		return fmt.Errorf("invalid phone number: %s (must be 10 digits)", phone)
	}
	return nil
}

func ValidatePolicyType(policy string) error {
	return oneOf("policy type", policy, PolicyTypes)
}

func ValidatePaymentMethod(method string) error {
	return oneOf("payment method", method, PaymentMethods)
}

func ValidateSessionBackend(backend string) error {
	return oneOf("session backend", backend, []string{"db", "memory", "redis"})
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s (must be one of: %s)", field, value, strings.Join(allowed, ", "))
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
