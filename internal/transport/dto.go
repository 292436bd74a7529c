package transport

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	TenantID  *uint  `json:"tenantId"`
}

type CreateTenantRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type IDResponse struct {
	ID uint `json:"id"`
}

type ErrorItem struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

type ErrorResponse struct {
	Errors []ErrorItem `json:"errors"`
}
