package session

import (
	"github.com/google/uuid"

	"github.com/fjod/go_cart/kiosk-service/internal/scanner"
)

// Everything the control loop reacts to arrives as one of these on a single
// channel. Scanner and payment events carry the id of the session that
// produced them so that late arrivals can be recognised and dropped.

type scanEvent struct {
	sessionID uuid.UUID
	event     scanner.Event
}

type paymentResult struct {
	sessionID uuid.UUID
	requestID uuid.UUID
	err       error
}

type command struct {
	name string
	fn   func() error
	done chan error
}
