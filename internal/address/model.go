package address

import "github.com/google/uuid"

// Address is a saved shipping destination. Orders copy its fields at
// checkout and never read it again.
type Address struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	FullName        string
	PhoneNumber     string
	FullAddress     string
	SpecificAddress string
	IsDefault       bool
}
