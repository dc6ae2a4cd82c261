// Package service defines the interface all long-running daemon services
// implement.
package service

import "context"

// Service is a long-running component of the daemon.
type Service interface {
	// Run the Service until the given context.Context is done.
	Run(ctx context.Context) error
}
