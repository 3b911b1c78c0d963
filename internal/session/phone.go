package session

import (
	"github.com/pkg/errors"

	"github.com/fjod/go_cart/kiosk-service/internal/domain"
)

const phoneDigits = 9

// ValidatePhone accepts exactly nine ASCII digits and nothing else.
func ValidatePhone(phone string) error {
	if len(phone) != phoneDigits {
		return errors.Wrapf(domain.ErrInvalidPhoneNumber, "want %d digits, got %d characters", phoneDigits, len(phone))
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return errors.Wrapf(domain.ErrInvalidPhoneNumber, "non-digit at position %d", i+1)
		}
	}
	return nil
}
