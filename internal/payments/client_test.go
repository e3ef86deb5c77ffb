package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreatePreference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/checkout/preferences" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}

		var req PreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ExternalReference != "fac-1|2024-05-01|7|18:00" {
			t.Errorf("external reference = %q", req.ExternalReference)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Preference{
			ID:        "pref-1",
			InitPoint: "https://processor.test/init/pref-1",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")
	pref, err := client.CreatePreference(context.Background(), &PreferenceRequest{
		Title:             "Court booking",
		Quantity:          1,
		UnitPrice:         100,
		ExternalReference: "fac-1|2024-05-01|7|18:00",
	})
	if err != nil {
		t.Fatalf("CreatePreference failed: %v", err)
	}
	if pref.ID != "pref-1" {
		t.Errorf("preference id = %q", pref.ID)
	}
	if pref.InitPoint == "" {
		t.Error("missing init point")
	}
}

func TestCreatePreferenceAttachesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid payer email"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")
	_, err := client.CreatePreference(context.Background(), &PreferenceRequest{Title: "x"})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "invalid payer email") {
		t.Errorf("upstream payload not attached: %v", err)
	}
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/P1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Payment{
			ID:                "P1",
			Status:            StatusApproved,
			TransactionAmount: 150,
			ExternalReference: "fac-1|2024-05-01|7|18:00",
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")
	payment, err := client.GetPayment(context.Background(), "P1")
	if err != nil {
		t.Fatalf("GetPayment failed: %v", err)
	}
	if payment.Status != StatusApproved {
		t.Errorf("status = %q", payment.Status)
	}
	if payment.TransactionAmount != 150 {
		t.Errorf("amount = %v", payment.TransactionAmount)
	}
}

func TestGetPaymentNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-token")
	if _, err := client.GetPayment(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown payment")
	}
}
