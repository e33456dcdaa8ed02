package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taldoflemis/trattoria/conversation"
	"github.com/taldoflemis/trattoria/menu"
	"github.com/taldoflemis/trattoria/store"
)

type sentMessage struct {
	phone string
	text  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeNotifier) Send(_ context.Context, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{phone: phone, text: text})
	return nil
}

func (f *fakeNotifier) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func testSettings() *Settings {
	return &Settings{
		App: AppSettings{Name: "trattoria-test", Version: "0.0.0", Env: "test"},
		HTTP: HTTPSettings{
			Port: "8080",
			IP:   "127.0.0.1",
			CORS: CORSSettings{
				Origins: []string{"http://localhost:5173"},
				Methods: []string{"GET", "POST", "PUT", "DELETE"},
				Headers: []string{"Accept", "Content-Type"},
			},
		},
	}
}

func newTestServer(t *testing.T) (*echo.Echo, *store.FileStore, *fakeNotifier) {
	t.Helper()

	fs, err := store.OpenFileStore(t.TempDir())
	require.NoError(t, err)

	conv, err := conversation.NewManager(fs, menu.Default())
	require.NoError(t, err)

	health, err := healthgo.New(healthgo.WithComponent(healthgo.Component{
		Name:    "trattoria-test",
		Version: "0.0.0",
	}))
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	e := echo.New()
	NewMainHandler(e, testSettings(), fs, notifier, conv, NewChannelOrderEvents(), health)
	return e, fs, notifier
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/pedidos", `{"type":"takeout","customer_name":"Ana","status":"pending"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "order created", resp.Message)
	assert.Equal(t, int64(1), resp.Order.ID)
	assert.Equal(t, "Ana", resp.Order.Name)
	assert.NotEmpty(t, resp.Order.Timestamp)
}

func TestListOrdersIsIdempotent(t *testing.T) {
	e, _, _ := newTestServer(t)
	doJSON(e, http.MethodPost, "/api/pedidos", `{"type":"takeout","customer_name":"Ana"}`)
	doJSON(e, http.MethodPost, "/api/pedidos", `{"type":"reservation","customer_name":"Luca"}`)

	first := doJSON(e, http.MethodGet, "/api/pedidos", "")
	second := doJSON(e, http.MethodGet, "/api/pedidos", "")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	var orders []store.Order
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &orders))
	assert.Len(t, orders, 2)
}

func TestUpdateOrderStatusNotifies(t *testing.T) {
	e, fs, notifier := newTestServer(t)
	stored, err := fs.Insert(context.Background(), &store.Order{
		Type:  store.TypeTakeout,
		Name:  "Ana",
		Phone: "+34600111222",
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPut, "/api/pedidos/1", `{"status":"ready"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Order.Status)
	assert.Equal(t, stored.ID, resp.Order.ID)

	sent := notifier.sentMessages()
	require.Len(t, sent, 1, "exactly one notification per status change")
	assert.Equal(t, "+34600111222", sent[0].phone)
	assert.Contains(t, sent[0].text, "ready for pickup")
}

func TestUpdateOrderUnrecognizedStatusNotifiesNobody(t *testing.T) {
	e, fs, notifier := newTestServer(t)
	_, err := fs.Insert(context.Background(), &store.Order{
		Type:  store.TypeTakeout,
		Name:  "Ana",
		Phone: "+34600111222",
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPut, "/api/pedidos/1", `{"status":"somewhere_in_between"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, notifier.sentMessages())
}

func TestUpdateOrderWithoutPhoneNotifiesNobody(t *testing.T) {
	e, fs, notifier := newTestServer(t)
	_, err := fs.Insert(context.Background(), &store.Order{Type: store.TypeTakeout, Name: "Ana"})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPut, "/api/pedidos/1", `{"status":"ready"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, notifier.sentMessages())
}

func TestUpdateOrderNotFound(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodPut, "/api/pedidos/42", `{"status":"ready"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "order not found", resp.Error)
}

func TestDeleteOrderNotFoundSkipsNotifier(t *testing.T) {
	e, _, notifier := newTestServer(t)

	rec := doJSON(e, http.MethodDelete, "/api/pedidos/42", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, notifier.sentMessages())
}

func TestDeleteReservationSendsCancellation(t *testing.T) {
	e, fs, notifier := newTestServer(t)
	_, err := fs.Insert(context.Background(), &store.Order{
		Type:  store.TypeReservation,
		Name:  "Luca",
		Phone: "+34600333444",
	})
	require.NoError(t, err)

	rec := doJSON(e, http.MethodDelete, "/api/pedidos/1", "")

	require.Equal(t, http.StatusOK, rec.Code)

	sent := notifier.sentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].text, "reservation has been cancelled")

	orders, err := fs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func doWebhook(e *echo.Echo, from, body string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("From", from)
	form.Set("Body", body)
	req := httptest.NewRequest(http.MethodPost, "/bot", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookRepliesWithSingleTwiMLMessage(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doWebhook(e, "whatsapp:+15551234567", "hola, que tienen?")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/xml")

	twiml := rec.Body.String()
	assert.Contains(t, twiml, "<Response>")
	assert.Equal(t, 1, strings.Count(twiml, "<Message>"), "exactly one reply message")
}

func TestWebhookMissingSender(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doWebhook(e, "", "hola")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookReservationFlowStripsChannelPrefix(t *testing.T) {
	e, fs, _ := newTestServer(t)
	from := "whatsapp:+15551234567"

	doWebhook(e, from, "reserva")
	doWebhook(e, from, "Jane Doe")
	doWebhook(e, from, "4")
	doWebhook(e, from, "2025-06-01")
	rec := doWebhook(e, from, "19:00")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reservation confirmed")

	orders, err := fs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "+15551234567", orders[0].Phone, "channel prefix is stripped before the session key")
	assert.Equal(t, store.TypeReservation, orders[0].Type)
}

func TestHealthCheck(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
