package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bekarysoff/avtoservice-backend/internal/pkg/apperror"
)

func TestClient_SendSuccess(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sys/send.php" {
			t.Errorf("неожиданный путь %q", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"id": 42, "cnt": 1}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "login", "secret", "AVTO")

	id, err := client.Send(context.Background(), "+77001234567", "Ваш код подтверждения: 123456")
	if err != nil {
		t.Fatalf("отправка вернула ошибку: %v", err)
	}
	if id != "42" {
		t.Fatalf("ожидался идентификатор 42, получили %q", id)
	}

	for key, want := range map[string]string{
		"login":   "login",
		"psw":     "secret",
		"phones":  "+77001234567",
		"fmt":     "3",
		"charset": "utf-8",
		"sender":  "AVTO",
	} {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Fatalf("параметр %q: ожидалось %q, получили %v", key, want, got)
		}
	}
	if mes := gotQuery["mes"]; len(mes) != 1 || !strings.Contains(mes[0], "123456") {
		t.Fatalf("текст сообщения должен передаваться в параметре mes, получили %v", gotQuery["mes"])
	}
}

func TestClient_SendInsufficientBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "no money", "error_code": 3}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "login", "secret", "")

	_, err := client.Send(context.Background(), "+77001234567", "test")
	if !apperror.Is(err, apperror.ErrCodeDelivery) {
		t.Fatalf("ожидалась ошибка доставки, получили %v", err)
	}
	if !strings.Contains(apperror.UserMessage(err), "недостаточно средств") {
		t.Fatalf("нулевой баланс должен переводиться в понятное сообщение, получили %q", apperror.UserMessage(err))
	}
}

func TestClient_SendGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "invalid number", "error_code": 7}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "login", "secret", "")

	_, err := client.Send(context.Background(), "+77001234567", "test")
	if !apperror.Is(err, apperror.ErrCodeDelivery) {
		t.Fatalf("ожидалась ошибка доставки, получили %v", err)
	}
	if !strings.Contains(apperror.UserMessage(err), "invalid number") {
		t.Fatalf("текст ошибки шлюза должен сохраняться, получили %q", apperror.UserMessage(err))
	}
}

func TestClient_SendHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "login", "secret", "")

	_, err := client.Send(context.Background(), "+77001234567", "test")
	if !apperror.Is(err, apperror.ErrCodeDelivery) {
		t.Fatalf("не-200 статус должен давать ошибку доставки, получили %v", err)
	}
}

func TestClient_SendMissingCredentials(t *testing.T) {
	client := NewClient("https://smsc.kz", "", "", "")

	_, err := client.Send(context.Background(), "+77001234567", "test")
	if !apperror.Is(err, apperror.ErrCodeConfig) {
		t.Fatalf("без учётных данных отправка должна отклоняться, получили %v", err)
	}
}
