package dto

// SendOTPRequest — тело POST /api/auth/send-otp.
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest — тело POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// CreatePartnerAccountRequest — тело POST /api/admin/create-partner-account.
type CreatePartnerAccountRequest struct {
	ApplicationID string `json:"applicationId" binding:"required"`
	Password      string `json:"password" binding:"required"`
}

// RejectApplicationRequest — тело POST /api/admin/reject-partner-application.
type RejectApplicationRequest struct {
	ApplicationID string `json:"applicationId" binding:"required"`
	Notes         string `json:"notes"`
}

// CreateTestPartnerRequest — тело POST /api/dev/create-test-partner.
type CreateTestPartnerRequest struct {
	Phone        string `json:"phone" binding:"required"`
	Password     string `json:"password" binding:"required"`
	BusinessName string `json:"businessName"`
	FullName     string `json:"fullName"`
	City         string `json:"city"`
}
