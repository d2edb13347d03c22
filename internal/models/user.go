package models

// UserRole mirrors the roles assigned by the surrounding portal's user
// directory. Authentication happens upstream; this service only consumes the
// verified identity.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Actor is the verified identity performing an operation.
type Actor struct {
	ID string `json:"id"`
	// Role is the directory role.
	Role UserRole `json:"role"`
	// Reviewer marks a teacher granted review/publish rights.
	Reviewer bool `json:"reviewer"`
}

// CanReview reports whether the actor may approve, decline or publish results.
func (a Actor) CanReview() bool {
	return a.Role == RoleAdmin || (a.Role == RoleTeacher && a.Reviewer)
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
