package dto

type RegisterRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type RegisterResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
