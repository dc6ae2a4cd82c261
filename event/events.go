// Package event holds the payload types that are published and received via
// the portal.
package event

import (
	"github.com/eclipse/paho.golang/paho"
)

// Event wraps a received publish together with its already unmarshalled
// payload.
type Event[T any] struct {
	Publish *paho.Publish
	Payload T
}

// EmptyEvent is used for events without payload.
type EmptyEvent struct {
}
