// Package domain defines the lobby session entity, its formation workflow
// states, the event variants processed by a lobby actor, and the content
// catalog that roster capacity and eligibility rules derive from.
package domain
