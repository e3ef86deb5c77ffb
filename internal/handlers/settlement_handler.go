package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/courtpay/internal/helpers"
	"github.com/joshua-takyi/courtpay/internal/models"
	"github.com/joshua-takyi/courtpay/internal/services"
)

// GetDailySettlementHandler returns the aggregated ledger for one facility
// and day. A day with no settled payments answers an empty aggregate rather
// than 404 so dashboards can render zeroes.
func GetDailySettlementHandler(ss *services.SettlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		facilityID := c.Param("facility_id")
		date := c.Param("date")
		if facilityID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("facility ID is required"))
			return
		}
		if _, err := time.Parse("2006-01-02", date); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid date, expected YYYY-MM-DD"))
			return
		}

		daily, err := ss.Daily(c.Request.Context(), facilityID, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}
		if daily == nil {
			daily = &models.DailySettlement{FacilityID: facilityID, Date: date}
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(daily, ""))
	}
}
