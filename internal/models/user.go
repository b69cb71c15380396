package models

import "time"

// User is an administrator account. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	SchoolID     string    `json:"schoolId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity returns the token identity for the user.
func (u *User) Identity() Identity {
	id := Identity{UserID: u.ID, Role: u.Role}
	if u.Role == RoleSchooladmin {
		id.SchoolID = u.SchoolID
	}
	return id
}

// UserView is the public projection of a User returned by the API.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	SchoolID string `json:"schoolId,omitempty"`
}

func (u *User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, SchoolID: u.SchoolID}
}
