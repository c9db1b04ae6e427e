package auth

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ProfileResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	UserType UserType `json:"user_type"`
}

func toProfileResponse(p *Profile) ProfileResponse {
	return ProfileResponse{
		ID:       p.ID,
		Email:    p.Email,
		FullName: p.FullName,
		UserType: p.UserType,
	}
}
