package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/courtpay/internal/helpers"
	"github.com/joshua-takyi/courtpay/internal/models"
	"github.com/joshua-takyi/courtpay/internal/services"
)

// UpsertFacilityHandler creates or replaces a facility's capacity mapping.
func UpsertFacilityHandler(fs *services.FacilityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var facility models.Facility
		if err := c.ShouldBindJSON(&facility); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}
		facility.ID = c.Param("id")

		if err := fs.UpsertFacility(c.Request.Context(), &facility); err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(facility, "facility saved"))
	}
}

// GetFacilityHandler returns one facility.
func GetFacilityHandler(fs *services.FacilityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		facility, err := fs.GetFacility(c.Request.Context(), c.Param("id"))
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, helpers.ErrorResponse("facility not found"))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(facility, ""))
	}
}

// SlotOccupancyHandler answers how full a slot currently is, using the same
// dual-representation tolerant count the engine uses.
func SlotOccupancyHandler(fs *services.FacilityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := c.Query("ref")
		if ref == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("slot ref is required"))
			return
		}

		occ, err := fs.Occupancy(c.Request.Context(), ref)
		if errors.Is(err, models.ErrBadSlotRef) {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, helpers.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(occ, ""))
	}
}
