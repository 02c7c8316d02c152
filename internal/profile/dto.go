package profile

// MeResponse is returned by GET /users/me.
type MeResponse struct {
	Profile *Profile `json:"profile"`
	Role    Role     `json:"role"`
}

// CreateProfileDTO is used by the seeder and administrative tooling.
type CreateProfileDTO struct {
	ID         string `json:"id" validate:"required"`
	EmployeeID string `json:"employee_id" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Department string `json:"department" validate:"required"`
	Role       Role   `json:"role" validate:"required,oneof=employee manager"`
}
