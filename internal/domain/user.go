package domain

import "time"

// User is the domain model for registered marketplace accounts
// (customers, vendors, admins). Guests have no account row.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the explicit identity of the caller for a single service
// invocation. It is always passed as a parameter, never carried in
// ambient state.
type Actor struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Anonymous is the actor used for unauthenticated submissions.
func Anonymous() Actor {
	return Actor{Role: RoleGuest}
}

// ActorFor builds an actor from an authenticated user record.
func ActorFor(u *User) Actor {
	return Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
