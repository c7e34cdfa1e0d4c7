package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bekarysoff/avtoservice-backend/internal/dto"
	"github.com/bekarysoff/avtoservice-backend/internal/logger"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
	"github.com/bekarysoff/avtoservice-backend/internal/service"
)

// AuthHandler предоставляет HTTP слой входа по коду из SMS.
type AuthHandler struct {
	otp *service.OTPService
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(otp *service.OTPService) *AuthHandler {
	return &AuthHandler{otp: otp}
}

// SendOTP обрабатывает POST /api/auth/send-otp.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "номер телефона обязателен"})
		return
	}

	result, err := h.otp.Send(c.Request.Context(), req.Phone, c.ClientIP())
	if err != nil {
		h.respondSendError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SendOTPResponse{
		Success: true,
		Message: result.Message,
		SMSID:   result.SMSID,
	})
}

// VerifyOTP обрабатывает POST /api/auth/verify-otp.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.VerifyOTPErrorResponse{
			Success: false,
			Error:   "номер телефона и код обязательны",
		})
		return
	}

	meta := map[string]string{
		"user_agent": c.GetHeader("User-Agent"),
		"ip":         c.ClientIP(),
	}

	result, err := h.otp.Verify(c.Request.Context(), req.Phone, req.Code, meta)
	if err != nil {
		h.respondVerifyError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifyOTPResponse{
		Success:   true,
		Session:   result.Session,
		IsNewUser: result.IsNewUser,
	})
}

// respondSendError переводит ошибку отправки кода в HTTP ответ.
// Лимиты и валидация отдаются как есть, остальное логируется полностью,
// а клиенту уходит сообщение без внутренних деталей.
func (h *AuthHandler) respondSendError(c *gin.Context, err error) {
	logError(c, "send-otp", err)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperror.ErrCodeRateLimited:
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{Error: appErr.Message})
			return
		case apperror.ErrCodeValidation:
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: appErr.Message})
			return
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "не удалось отправить код подтверждения",
				Details: appErr.Message,
			})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "внутренняя ошибка сервера"})
}

// respondVerifyError переводит ошибку проверки кода в HTTP ответ.
// Неверный, истёкший и использованный код для клиента неразличимы.
func (h *AuthHandler) respondVerifyError(c *gin.Context, err error) {
	logError(c, "verify-otp", err)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperror.ErrCodeInvalidCode, apperror.ErrCodeValidation:
			c.JSON(http.StatusBadRequest, dto.VerifyOTPErrorResponse{
				Success: false,
				Error:   appErr.Message,
			})
			return
		default:
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
				Error:   "не удалось выполнить вход",
				Details: appErr.Message,
			})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "внутренняя ошибка сервера"})
}

// logError пишет полную ошибку, включая причины, в серверный лог.
func logError(c *gin.Context, op string, err error) {
	if logger.Log == nil {
		return
	}
	logger.Log.WithFields(logrus.Fields{
		"op":    op,
		"path":  c.Request.URL.Path,
		"error": err.Error(),
	}).Error("auth handler: ошибка запроса")
}
