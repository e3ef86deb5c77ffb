package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/joshua-takyi/courtpay/internal/helpers"
	"github.com/joshua-takyi/courtpay/internal/models"
	"github.com/joshua-takyi/courtpay/internal/services"
)

// CreateCheckoutHandler creates a payment intent at the processor and returns
// the checkout identifiers plus the computed charged amount.
func CreateCheckoutHandler(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input services.CheckoutInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		result, err := ps.CreateCheckout(c.Request.Context(), &input)
		if err != nil {
			if errors.Is(err, models.ErrBadSlotRef) {
				c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
				return
			}
			// Processor rejections surface with the upstream payload attached.
			c.JSON(http.StatusBadGateway, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, helpers.SuccessResponse(result, "checkout created"))
	}
}

// webhookBody covers the known body shapes the processor delivers. The id may
// also arrive purely in query parameters.
type webhookBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	ID     string `json:"id"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// extractWebhook pulls the payment-type marker and payment id from any of the
// known locations, query parameters first.
func extractWebhook(c *gin.Context) (topic, paymentID string) {
	topic = c.Query("topic")
	if topic == "" {
		topic = c.Query("type")
	}
	paymentID = c.Query("id")
	if paymentID == "" {
		paymentID = c.Query("data.id")
	}

	if c.Request.Body != nil && c.Request.Method == http.MethodPost {
		var body webhookBody
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err == nil {
			if topic == "" {
				topic = body.Topic
			}
			if topic == "" {
				topic = body.Type
			}
			if paymentID == "" {
				paymentID = body.Data.ID
			}
			if paymentID == "" {
				paymentID = body.ID
			}
		}
	}
	return topic, paymentID
}

// PaymentWebhookHandler receives asynchronous payment notifications. It
// always acknowledges with 200 so the processor's redelivery storm never
// triggers on internal failures; redelivery of the same payment id is safe by
// idempotency.
func PaymentWebhookHandler(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		topic, paymentID := extractWebhook(c)

		if paymentID == "" || (topic != "payment" && topic != "" && topic != "payment.updated" && topic != "payment.created") {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		if err := ps.HandleWebhook(c.Request.Context(), paymentID); err != nil {
			// Logged upstream; acknowledged regardless.
			_ = c.Error(err)
			c.JSON(http.StatusOK, gin.H{"status": "received"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "processed"})
	}
}

// CreateManualPaymentHandler records an offline payment awaiting review.
func CreateManualPaymentHandler(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var mp models.ManualPayment
		if err := c.ShouldBindJSON(&mp); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		created, err := ps.CreateManualPayment(c.Request.Context(), &mp)
		if err != nil {
			if errors.Is(err, models.ErrBadSlotRef) {
				c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
				return
			}
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}

		c.JSON(http.StatusCreated, helpers.SuccessResponse(created, "manual payment recorded"))
	}
}

func reviewerName(c *gin.Context) string {
	if claims, ok := c.Get("reviewer"); ok {
		if rc, ok := claims.(*helpers.ReviewerClaims); ok {
			if rc.Name != "" {
				return rc.Name
			}
			return rc.Subject
		}
	}
	return ""
}

// ApproveManualPaymentHandler runs a pending manual payment through the
// confirmation engine. A full slot answers 409 so the reviewer sees "no
// availability" rather than a generic failure.
func ApproveManualPaymentHandler(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid manual payment ID format"))
			return
		}

		result, err := ps.ApproveManual(c.Request.Context(), id, reviewerName(c))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, helpers.SuccessResponse(result, "payment approved"))
		case errors.Is(err, models.ErrCapacityExceeded):
			c.JSON(http.StatusConflict, helpers.ErrorResponse("no availability left for this slot"))
		case errors.Is(err, models.ErrBadSlotRef):
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, helpers.ErrorResponse("manual payment not found"))
		default:
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
		}
	}
}

// RejectManualPaymentHandler marks a pending manual payment rejected.
func RejectManualPaymentHandler(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid manual payment ID format"))
			return
		}

		var body struct {
			Reason string `json:"reason"`
		}
		_ = c.ShouldBindJSON(&body)

		err = ps.RejectManual(c.Request.Context(), id, reviewerName(c), body.Reason)
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, helpers.ErrorResponse("manual payment not found"))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "payment rejected"))
	}
}

// ListReconciliationsHandler exposes the manual reconciliation queue.
func ListReconciliationsHandler(ps *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := ps.OpenReconciliations(c.Request.Context(), c.Query("facility_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(recs, ""))
	}
}
