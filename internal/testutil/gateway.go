package testutil

import (
	"eivu-go/internal/gateway"
)

// NewTestGateway creates a new in-memory gateway for testing.
func NewTestGateway() *gateway.MemoryGateway {
	return gateway.NewMemoryGateway()
}
