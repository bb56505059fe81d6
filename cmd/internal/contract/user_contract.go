package contract

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=80,nospaces"`
	Email    string `json:"email" validate:"required,email"`
	Sub      string `json:"sub" validate:"omitempty,max=128"`
}

type UserResponse struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Perms     int64   `json:"permissions"`
	IsOnline  bool    `json:"is_online"`
	LastSeen  *string `json:"last_seen"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}
