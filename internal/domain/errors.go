package domain

import "errors"

var (
	ErrCatalogUnavailable = errors.New("catalog unavailable")
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateItem      = errors.New("product already in cart")
	ErrItemNotInCart      = errors.New("item not in cart")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidPhoneNumber = errors.New("phone number must be exactly 9 digits")
	ErrIllegalTransition  = errors.New("illegal transition of session state")
	ErrDeviceAbsent       = errors.New("rfid device not present")
	ErrNoPayment          = errors.New("no payment in progress")
	ErrControllerStopped  = errors.New("session controller stopped")
)
