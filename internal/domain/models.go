package domain

import "time"

// User roles as issued by the backend.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Sort modes accepted by the catalog projection.
const (
	SortDateAsc      = "date-asc"
	SortDateDesc     = "date-desc"
	SortPriceAsc     = "price-asc"
	SortPriceDesc    = "price-desc"
	SortAvailability = "availability"
)

// FilterAll is the sentinel meaning "no filter" for the category and
// location selectors.
const FilterAll = "All"

type Event struct {
	ID               int       `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Location         string    `json:"location"`
	EventDate        time.Time `json:"eventDate"`
	PriceKES         float64   `json:"priceKES"`
	TotalTickets     int       `json:"totalTickets"`
	AvailableTickets int       `json:"availableTickets"`
	ImageURL         string    `json:"imageUrl,omitempty"`
}

type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	County      string `json:"county"`
	Role        string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

type RegisterRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	PhoneNumber string `json:"phoneNumber" validate:"required,min=9,max=15"`
	County      string `json:"county" validate:"required,max=50"`
}

// ProfileUpdate carries a partial edit of the current user. Nil fields are
// left untouched by Apply and omitted from the request body.
type ProfileUpdate struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	County      *string `json:"county,omitempty"`
}

// Apply merges the non-nil fields into a copy of u.
func (p ProfileUpdate) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.County != nil {
		u.County = *p.County
	}
	return u
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type RegisterResponse struct {
	Success bool `json:"success"`
}

type ProfileResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type PurchaseRequest struct {
	EventID     int    `json:"eventId" validate:"required,gt=0"`
	UserName    string `json:"userName" validate:"required,min=2,max=100"`
	UserEmail   string `json:"userEmail" validate:"required,email,max=255"`
	PhoneNumber string `json:"phoneNumber" validate:"required,min=9,max=15"`
	Quantity    int    `json:"quantity" validate:"required,min=1"`
}

type TicketConfirmation struct {
	TicketCode    string    `json:"ticketCode"`
	EventName     string    `json:"eventName"`
	EventLocation string    `json:"eventLocation"`
	EventDate     time.Time `json:"eventDate"`
	Quantity      int       `json:"quantity"`
	TotalPrice    float64   `json:"totalPrice"`
	PurchaseDate  time.Time `json:"purchaseDate"`
}

// APIError is the backend's error envelope.
type APIError struct {
	Error string `json:"error"`
}
