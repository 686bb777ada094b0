package http

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Message string    `json:"message"`
	Admin   AdminInfo `json:"admin"`
}

type AdminInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}
