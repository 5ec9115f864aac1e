package models

import "time"

// Supplier represents a registered supplier. Records are never mutated in
// place: they are created and deleted as a whole.
type Supplier struct {
	ID   int64  `json:"id"`
	Name string `json:"nome"`
}

// Purchase represents a purchase request. SupplierName references a
// Supplier by name, not by id; that is the wire format of the legacy data
// and a deleted supplier leaves the name dangling.
type Purchase struct {
	ID           int64     `json:"id"`
	SupplierName string    `json:"fornecedor"`
	Amount       float64   `json:"valor"`
	Category     string    `json:"tipo"`
	Description  string    `json:"descricao"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"criadoEm"`
}

// User represents a user account. Password holds a bcrypt hash.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the single currently-authenticated identity. Token ties the
// browser cookie back to this record.
type Session struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

// DisplayName returns the name shown in the page header, falling back to
// the email when the account has no name.
func (s Session) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Email
}

// Status is the purchase status enum.
type Status string

const (
	StatusPending   Status = "pendente"
	StatusSent      Status = "enviado"
	StatusCancelled Status = "cancelado"
)

// Next returns the successor in the fixed cycle
// pendente → enviado → cancelado → pendente.
func (s Status) Next() Status {
	switch s {
	case StatusPending:
		return StatusSent
	case StatusSent:
		return StatusCancelled
	default:
		return StatusPending
	}
}
