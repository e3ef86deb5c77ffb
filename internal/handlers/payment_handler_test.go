package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/courtpay/internal/helpers"
	"github.com/joshua-takyi/courtpay/internal/middleware"
	"github.com/joshua-takyi/courtpay/internal/models"
	"github.com/joshua-takyi/courtpay/internal/notify"
	"github.com/joshua-takyi/courtpay/internal/payments"
	"github.com/joshua-takyi/courtpay/internal/services"
)

const testSecret = "handler-test-secret"

type stubProcessor struct {
	payments map[string]*payments.Payment
}

func (s *stubProcessor) CreatePreference(ctx context.Context, pref *payments.PreferenceRequest) (*payments.Preference, error) {
	return &payments.Preference{ID: "pref-1", InitPoint: "https://processor.test/init"}, nil
}

func (s *stubProcessor) GetPayment(ctx context.Context, paymentID string) (*payments.Payment, error) {
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found at processor", paymentID)
	}
	return p, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *models.MemoryStore, *stubProcessor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := models.NewMemoryStore()
	processor := &stubProcessor{payments: map[string]*payments.Payment{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	confirmations := services.NewConfirmationService(store, logger)
	settlements := services.NewSettlementService(store, logger)
	ps := services.NewPaymentService(store, processor, confirmations, settlements, notify.NoopNotifier{}, logger, 0.10, 50)

	router := gin.New()
	router.POST("/payments/webhook", PaymentWebhookHandler(ps))
	router.POST("/payments/manual", CreateManualPaymentHandler(ps))

	reviewer := router.Group("/", middleware.ReviewerAuth(testSecret, logger))
	reviewer.POST("/payments/manual/:id/approve", ApproveManualPaymentHandler(ps))
	reviewer.POST("/payments/manual/:id/reject", RejectManualPaymentHandler(ps))
	reviewer.GET("/reconciliations", ListReconciliationsHandler(ps))

	return router, store, processor
}

func reviewerToken(t *testing.T, role string) string {
	t.Helper()
	claims := &helpers.ReviewerClaims{
		Role: role,
		Name: "ops reviewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "reviewer-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func seedSlot(t *testing.T, store *models.MemoryStore, facilityID string, capacity int) {
	t.Helper()
	err := store.UpsertFacility(context.Background(), &models.Facility{
		ID:         facilityID,
		Name:       "Test Arena",
		Capacities: map[string]int{"7": capacity},
		AdminIDs:   []string{"admin-1"},
	})
	require.NoError(t, err)
}

func TestWebhookConfirmsApprovedPayment(t *testing.T) {
	router, store, processor := newTestRouter(t)
	seedSlot(t, store, "fac-1", 2)

	processor.payments["P1"] = &payments.Payment{
		ID:                "P1",
		Status:            payments.StatusApproved,
		TransactionAmount: 100,
		ExternalReference: "fac-1|2024-05-01|7|18:00",
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook?topic=payment&id=P1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	booking, err := store.FindByPaymentID(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.State)

	daily, err := store.GetDailySettlement(context.Background(), "fac-1", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 100.0, daily.ChargedTotal)
}

func TestWebhookReadsIDFromBody(t *testing.T) {
	router, store, processor := newTestRouter(t)
	seedSlot(t, store, "fac-1", 2)

	processor.payments["P2"] = &payments.Payment{
		ID:                "P2",
		Status:            payments.StatusApproved,
		TransactionAmount: 80,
		ExternalReference: "fac-1|2024-05-01|7|19:00",
	}

	body := bytes.NewBufferString(`{"type":"payment","data":{"id":"P2"}}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := store.FindByPaymentID(context.Background(), "P2")
	assert.NoError(t, err)
}

func TestWebhookAcksUnknownPayment(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook?topic=payment&id=ghost", nil)
	router.ServeHTTP(rec, req)

	// Lookup failed internally, but the transport is still acknowledged.
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIgnoresUnrelatedTopics(t *testing.T) {
	router, store, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook?topic=merchant_order&id=MO-1", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := store.FindByPaymentID(context.Background(), "MO-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func createManualPayment(t *testing.T, router *gin.Engine, slotRef string) string {
	t.Helper()
	payload, _ := json.Marshal(map[string]interface{}{
		"facility_id": "fac-1",
		"slot_ref":    slotRef,
		"amount":      60,
		"payer_name":  "Walk-in customer",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/manual", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data models.ManualPayment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.ID.Hex()
}

func TestApproveManualRequiresReviewerToken(t *testing.T) {
	router, store, _ := newTestRouter(t)
	seedSlot(t, store, "fac-1", 1)
	id := createManualPayment(t, router, "fac-1|2024-05-01|7|18:00")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/manual/"+id+"/approve", nil)
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/payments/manual/"+id+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerToken(t, "viewer"))
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApproveManualConfirmsBooking(t *testing.T) {
	router, store, _ := newTestRouter(t)
	seedSlot(t, store, "fac-1", 1)
	id := createManualPayment(t, router, "fac-1|2024-05-01|7|18:00")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/manual/"+id+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerToken(t, "reviewer"))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	booking, err := store.FindByPaymentID(context.Background(), "manual-"+id)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.State)
	assert.Equal(t, models.ChannelManual, booking.Channel)
}

func TestApproveManualAnswersConflictWhenSlotFull(t *testing.T) {
	router, store, processor := newTestRouter(t)
	seedSlot(t, store, "fac-1", 1)

	// Fill the only slot through the online path first.
	processor.payments["P1"] = &payments.Payment{
		ID:                "P1",
		Status:            payments.StatusApproved,
		TransactionAmount: 100,
		ExternalReference: "fac-1|2024-05-01|7|18:00",
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook?topic=payment&id=P1", nil)
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	id := createManualPayment(t, router, "fac-1|2024-05-01|7|18:00")

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/payments/manual/"+id+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+reviewerToken(t, "reviewer"))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	// The conflict left the record pending for the reviewer to retry later.
	recs, err := store.ListOpenReconciliations(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, recs, "manual conflicts answer directly, nothing to reconcile")
}

func TestRejectManualPayment(t *testing.T) {
	router, store, _ := newTestRouter(t)
	seedSlot(t, store, "fac-1", 1)
	id := createManualPayment(t, router, "fac-1|2024-05-01|7|18:00")

	payload := bytes.NewBufferString(`{"reason":"no matching bank transfer"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/manual/"+id+"/reject", payload)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+reviewerToken(t, "admin"))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := store.FindByPaymentID(context.Background(), "manual-"+id)
	assert.ErrorIs(t, err, models.ErrNotFound, "rejection never touches bookings")
}
