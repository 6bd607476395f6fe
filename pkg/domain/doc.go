// Package domain defines the shared error model and request/response types
// exchanged between the HTTP layer and the conversion core.
package domain
