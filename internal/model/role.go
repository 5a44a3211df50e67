package model

// Role is the coarse account type. Employees act on behalf of their distributor.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleDistributor Role = "distributor"
	RoleEmployee    Role = "employee"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDistributor, RoleEmployee:
		return true
	}
	return false
}
