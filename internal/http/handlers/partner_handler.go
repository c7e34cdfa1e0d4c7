package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bekarysoff/avtoservice-backend/internal/dto"
	"github.com/bekarysoff/avtoservice-backend/internal/http/handlers/common"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
	"github.com/bekarysoff/avtoservice-backend/internal/service"
)

// PartnerHandler предоставляет HTTP слой провижининга партнёров.
type PartnerHandler struct {
	partners *service.PartnerService
}

// NewPartnerHandler создаёт хэндлер.
func NewPartnerHandler(partners *service.PartnerService) *PartnerHandler {
	return &PartnerHandler{partners: partners}
}

// CreatePartnerAccount обрабатывает POST /api/admin/create-partner-account.
// Доступ только администраторам, гейт стоит в роутере.
func (h *PartnerHandler) CreatePartnerAccount(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "требуется авторизация"})
		return
	}

	var req dto.CreatePartnerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "applicationId и password обязательны"})
		return
	}

	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "неверный идентификатор заявки"})
		return
	}

	result, err := h.partners.ApproveApplication(c.Request.Context(), adminID, applicationID, req.Password)
	if err != nil {
		h.respondError(c, "create-partner-account", err)
		return
	}

	c.JSON(http.StatusOK, dto.PartnerAccountResponse{
		Success:   true,
		Message:   "партнёрский аккаунт создан",
		PartnerID: result.ProfileID.String(),
		UserID:    result.UserID.String(),
		Phone:     result.Phone,
	})
}

// RejectPartnerApplication обрабатывает POST /api/admin/reject-partner-application.
func (h *PartnerHandler) RejectPartnerApplication(c *gin.Context) {
	adminID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "требуется авторизация"})
		return
	}

	var req dto.RejectApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "applicationId обязателен"})
		return
	}

	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "неверный идентификатор заявки"})
		return
	}

	if err := h.partners.RejectApplication(c.Request.Context(), adminID, applicationID, req.Notes); err != nil {
		h.respondError(c, "reject-partner-application", err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{
		Success: true,
		Message: "заявка отклонена",
	})
}

// CreateTestPartner обрабатывает POST /api/dev/create-test-partner.
// Эндпоинт безопасен для повторных вызовов с одним и тем же номером.
func (h *PartnerHandler) CreateTestPartner(c *gin.Context) {
	var req dto.CreateTestPartnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "phone и password обязательны"})
		return
	}

	result, err := h.partners.CreateTestPartner(c.Request.Context(), service.TestPartnerInput{
		Phone:        req.Phone,
		Password:     req.Password,
		FullName:     req.FullName,
		BusinessName: req.BusinessName,
		City:         req.City,
	})
	if err != nil {
		h.respondError(c, "create-test-partner", err)
		return
	}

	c.JSON(http.StatusOK, dto.PartnerAccountResponse{
		Success:   true,
		Message:   "тестовый партнёр создан",
		PartnerID: result.ProfileID.String(),
		UserID:    result.UserID.String(),
		Phone:     result.Phone,
	})
}

// respondError переводит ошибку провижининга в HTTP ответ. В отличие от
// OTP пути клиенту не уходит никаких внутренних деталей: только общее
// сообщение стадии, полная ошибка остаётся в серверном логе.
func (h *PartnerHandler) respondError(c *gin.Context, op string, err error) {
	logError(c, op, err)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperror.ErrCodeApplication:
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: appErr.Message})
			return
		case apperror.ErrCodeValidation:
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: appErr.Message})
			return
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: appErr.Message})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "внутренняя ошибка сервера"})
}
