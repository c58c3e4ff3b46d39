package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin         UserRole = "ADMIN"
	RoleInstructor    UserRole = "INSTRUCTOR"
	RoleCourseCreator UserRole = "COURSE_CREATOR"
	RoleOrganization  UserRole = "ORGANIZATION"
	RoleStudent       UserRole = "STUDENT"
)

// CanMarkAttendance reports whether the role may record attendance.
func (r UserRole) CanMarkAttendance() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
