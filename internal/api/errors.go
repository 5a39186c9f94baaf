package api

import (
	"errors"
	"fmt"
)

// NotFoundError represents a resource-not-found condition for one of the
// named entities this module tracks (route, bridge, tool).
type NotFoundError struct {
	ResourceType string
	ResourceName string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.ResourceType, e.ResourceName)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func newNotFoundError(resourceType, name string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceName: name}
}

// NewRouteNotFoundError builds a route-not-found error.
func NewRouteNotFoundError(method, urlTemplate string) *NotFoundError {
	return newNotFoundError("route", method+" "+urlTemplate)
}

// NewBridgeNotFoundError builds a bridge-not-found error.
func NewBridgeNotFoundError(name string) *NotFoundError {
	return newNotFoundError("bridge", name)
}

// NewToolNotFoundError builds a tool-not-found error.
func NewToolNotFoundError(name string) *NotFoundError {
	return newNotFoundError("tool", name)
}

// CircularBridgeError is returned when a bridge's identifier is already on
// the loading chain (spec.md §4.7 "Dedup & circular-reference detection").
type CircularBridgeError struct {
	Identifier string
	Chain      []string
}

func (e *CircularBridgeError) Error() string {
	return fmt.Sprintf("circular bridge reference for %q (chain: %v)", e.Identifier, e.Chain)
}
