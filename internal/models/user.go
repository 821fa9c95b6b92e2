package models

// User is the client view of a user as returned by the user service.
type User struct {
	// ID is the anonymous UUID issued by the backend.
	ID string `json:"id"`
	// DisplayName is the name shown in chat headers and message rows.
	DisplayName string `json:"display_name"`
}
