package schemas

// NewUserRequest is the request data to register a new client with the server.
type NewUserRequest struct {
	Username,
	DisplayName,
	Password,
	InviteCode string
}

// RegisterResponse confirms registration with the accepted username.
type RegisterResponse struct {
	Username    string
	DisplayName string
}
