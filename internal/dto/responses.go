package dto

import (
	"github.com/bekarysoff/avtoservice-backend/internal/service"
)

// ErrorResponse — стандартный ответ с ошибкой. Details заполняется
// только там, где детали безопасны для клиента.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SendOTPResponse — успешный ответ на отправку кода.
type SendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	SMSID   string `json:"smsId"`
}

// VerifyOTPResponse — успешный ответ на проверку кода.
type VerifyOTPResponse struct {
	Success   bool               `json:"success"`
	Session   *service.TokenPair `json:"session"`
	IsNewUser bool               `json:"isNewUser"`
}

// VerifyOTPErrorResponse — отказ проверки кода.
type VerifyOTPErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// PartnerAccountResponse — успешный ответ провижининга партнёра.
type PartnerAccountResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PartnerID string `json:"partnerId"`
	UserID    string `json:"userId"`
	Phone     string `json:"phone"`
}

// MessageResponse — простой ответ с сообщением.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
