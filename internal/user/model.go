package user

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the identity record the order flow reads. Credentials live elsewhere.
type User struct {
	ID        uuid.UUID
	FullName  string
	Email     string
	Role      Role
	CreatedAt time.Time
}
