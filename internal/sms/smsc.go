package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bekarysoff/avtoservice-backend/internal/logger"
	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
)

// Код ошибки smsc "недостаточно средств на счёте". Переводится в понятное
// пользователю сообщение, остальные коды отдаются как есть.
const errCodeInsufficientBalance = 3

// Client — клиент SMS шлюза smsc.kz. Отправка выполняется GET запросом
// с параметрами в query string, ответ приходит в JSON (fmt=3).
type Client struct {
	baseURL  string
	login    string
	password string
	sender   string
	http     *http.Client
}

// NewClient создаёт клиент шлюза.
func NewClient(baseURL, login, password, sender string) *Client {
	return &Client{
		baseURL:  baseURL,
		login:    login,
		password: password,
		sender:   sender,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// sendResponse — ответ шлюза. При успехе заполнены id и cnt,
// при ошибке — error и error_code.
type sendResponse struct {
	ID        int64  `json:"id"`
	Cnt       int    `json:"cnt"`
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

// Send отправляет SMS и возвращает идентификатор сообщения в шлюзе.
func (c *Client) Send(ctx context.Context, phone, text string) (string, error) {
	if c.login == "" || c.password == "" {
		return "", apperror.New(apperror.ErrCodeConfig, "SMS шлюз не настроен")
	}

	params := url.Values{}
	params.Set("login", c.login)
	params.Set("psw", c.password)
	params.Set("phones", phone)
	params.Set("mes", text)
	params.Set("fmt", "3")
	params.Set("charset", "utf-8")
	if c.sender != "" {
		params.Set("sender", c.sender)
	}

	reqURL := c.baseURL + "/sys/send.php?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeDelivery, "не удалось сформировать запрос к SMS шлюзу")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeDelivery, "SMS шлюз недоступен")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeDelivery, "не удалось прочитать ответ SMS шлюза")
	}

	if resp.StatusCode != http.StatusOK {
		return "", apperror.New(apperror.ErrCodeDelivery,
			fmt.Sprintf("SMS шлюз вернул статус %d", resp.StatusCode))
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeDelivery, "не удалось разобрать ответ SMS шлюза")
	}

	if parsed.Error != "" {
		if logger.Log != nil {
			logger.Log.WithFields(logrus.Fields{
				"phone":      phone,
				"error_code": parsed.ErrorCode,
				"error":      parsed.Error,
			}).Error("smsc: ошибка отправки")
		}

		if parsed.ErrorCode == errCodeInsufficientBalance {
			return "", apperror.New(apperror.ErrCodeDelivery,
				"недостаточно средств на балансе SMS шлюза, проверьте баланс или обратитесь в поддержку")
		}

		return "", apperror.New(apperror.ErrCodeDelivery,
			fmt.Sprintf("ошибка SMS шлюза: %s", parsed.Error))
	}

	return strconv.FormatInt(parsed.ID, 10), nil
}
