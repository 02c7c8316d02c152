package profile

import (
	"errors"
	"time"

	profileDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/profile"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleManager
}

// Profile is the organization record linked to an identity provider user.
type Profile struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employee_id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrInvalidRole     = errors.New("role must be either 'employee' or 'manager'")
)

func NewProfile(id, employeeID, name, department string) *Profile {
	now := time.Now()
	return &Profile{
		ID:         id,
		EmployeeID: employeeID,
		Name:       name,
		Department: department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func ToDataModel(p *Profile) *profileDatamodel.Profile {
	return &profileDatamodel.Profile{
		ID:         p.ID,
		EmployeeID: p.EmployeeID,
		Name:       p.Name,
		Department: p.Department,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func FromDataModel(p *profileDatamodel.Profile) *Profile {
	if p == nil {
		return nil
	}
	return &Profile{
		ID:         p.ID,
		EmployeeID: p.EmployeeID,
		Name:       p.Name,
		Department: p.Department,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func FromDataModelSlice(profiles []*profileDatamodel.Profile) []*Profile {
	result := make([]*Profile, len(profiles))
	for i, p := range profiles {
		result[i] = FromDataModel(p)
	}
	return result
}
