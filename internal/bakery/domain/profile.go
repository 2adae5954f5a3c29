package domain

import "time"

type Role string

const (
	RoleOwner    Role = "owner"
	RoleEmployee Role = "employee"
	RoleCustomer Role = "customer"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleOwner, RoleEmployee, RoleCustomer:
		return r, true
	}
	return "", false
}

type Profile struct {
	ID        string
	Email     string
	FullName  string
	Phone     string
	Role      Role
	Language  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var Languages = []string{"en", "es"}

func ValidLanguage(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Principal is the caller of a service operation. The zero value is an
// anonymous guest.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

func (p Principal) Authenticated() bool { return p.UserID != "" }
func (p Principal) IsOwner() bool       { return p.Role == RoleOwner }
func (p Principal) IsStaff() bool       { return p.Role == RoleOwner || p.Role == RoleEmployee }
