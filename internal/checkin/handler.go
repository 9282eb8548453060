package checkin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"boxflow/internal/api"
	"boxflow/internal/auth"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service   Service
	analytics *AnalyticsRepository
}

func NewHandler(service Service, analytics *AnalyticsRepository) *Handler {
	return &Handler{
		service:   service,
		analytics: analytics,
	}
}

// RequestCheckIn godoc
// @Summary      Check in to a class
// @Description  Creates a confirmed check-in, or returns the conflicting same-day check-in that must be displaced first.
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      201      {object}  CheckInResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      402      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /classes/{classID}/checkin [post]
func (h *Handler) RequestCheckIn(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	result, err := h.service.RequestCheckIn(c.Request.Context(), memberID, classID)
	if err != nil {
		switch {
		case errors.Is(err, ErrClassNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Class not found"})
		case errors.Is(err, ErrClassFull):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Class is full"})
		case errors.Is(err, ErrAlreadyCheckedIn):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "You're already checked in to this class"})
		case errors.Is(err, ErrInsufficientFunds):
			c.JSON(http.StatusPaymentRequired, api.ErrorResponse{Error: "No active subscription and insufficient balance for a drop-in"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to check in"})
		}
		return
	}

	if result.Conflict != nil {
		// Not an error: the UI turns this into a confirmation dialog.
		c.JSON(http.StatusConflict, gin.H{
			"conflict": result.Conflict,
			"message":  "You already have a check-in on " + result.Conflict.ProgramName + " at " + result.Conflict.StartTime + ". Change it?",
		})
		return
	}

	c.JSON(http.StatusCreated, result)
}

// CancelCheckIn godoc
// @Summary      Cancel a check-in
// @Description  Deletes the member's confirmed check-in on the class. Cancelling a missing check-in succeeds.
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {object}  api.MessageResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /classes/{classID}/checkin [delete]
func (h *Handler) CancelCheckIn(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	if err := h.service.CancelCheckIn(c.Request.Context(), memberID, classID); err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to cancel check-in"})
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Check-in cancelled"})
}

// ChangeCheckIn godoc
// @Summary      Move a check-in to another class
// @Description  Cancels the existing same-day check-in and checks in to the new class. On failure the original check-in is restored best-effort; the outcome field reports whether that held.
// @Tags         checkins
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ChangeCheckInRequest  true  "From/to class IDs"
// @Success      200      {object}  ChangeResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /checkins/change [post]
func (h *Handler) ChangeCheckIn(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	var req ChangeCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := h.service.ChangeCheckIn(c.Request.Context(), memberID, req.FromClassID, req.ToClassID)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to change class"
		switch {
		case errors.Is(err, ErrClassNotFound):
			status, msg = http.StatusNotFound, "Target class not found"
		case errors.Is(err, ErrClassFull):
			status, msg = http.StatusConflict, "Target class is full"
		case errors.Is(err, ErrAlreadyCheckedIn):
			status, msg = http.StatusConflict, "You're already checked in to the target class"
		case errors.Is(err, ErrCancelFailed):
			status, msg = http.StatusConflict, "Could not cancel the existing check-in"
		}

		outcome := ChangeFailedStateUnknown
		if result != nil {
			outcome = result.Outcome
		}
		c.JSON(status, gin.H{"error": msg, "outcome": outcome})
		return
	}

	c.JSON(http.StatusOK, result)
}

// VerifyAvailability godoc
// @Summary      Check class availability
// @Description  Pre-flight read: whether the class exists, has capacity, and whether the member is already checked in.
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {object}  Availability
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /classes/{classID}/availability [get]
func (h *Handler) VerifyAvailability(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	avail, err := h.service.VerifyAvailability(c.Request.Context(), classID, memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to verify availability"})
		return
	}

	c.JSON(http.StatusOK, avail)
}

// ListMyCheckIns godoc
// @Summary      List my check-ins
// @Description  Returns the authenticated member's check-in history with class details.
// @Tags         checkins
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   CheckInWithClass
// @Failure      500  {object}  api.ErrorResponse
// @Router       /checkins [get]
func (h *Handler) ListMyCheckIns(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Member not authenticated"})
		return
	}

	checkins, err := h.service.GetMemberCheckIns(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch check-ins"})
		return
	}

	c.JSON(http.StatusOK, checkins)
}

// ListClassRoster godoc
// @Summary      List class roster
// @Description  Returns confirmed check-ins for a class with member details. Admin only.
// @Tags         admin,checkins
// @Security     BearerAuth
// @Produce      json
// @Param        classID  path      int  true  "Class ID"
// @Success      200      {array}   RosterEntry
// @Failure      400      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /admin/classes/{classID}/roster [get]
func (h *Handler) ListClassRoster(c *gin.Context) {
	classID, err := strconv.Atoi(c.Param("classID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid class ID"})
		return
	}

	roster, err := h.service.GetClassRoster(c.Request.Context(), classID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch roster"})
		return
	}

	c.JSON(http.StatusOK, roster)
}

// GetCheckInAnalytics godoc
// @Summary      Check-in analytics
// @Description  Returns aggregated check-in stats. Admin only.
// @Tags         admin,checkins
// @Security     BearerAuth
// @Produce      json
// @Param        group_by  query     string  false  "Group by dimension (day or program)"
// @Param        from      query     string  true   "Start date (YYYY-MM-DD)"
// @Param        to        query     string  true   "End date (YYYY-MM-DD)"
// @Success      200       {object}  map[string]interface{}
// @Failure      400       {object}  api.ErrorResponse
// @Failure      500       {object}  api.ErrorResponse
// @Router       /admin/analytics/checkins [get]
func (h *Handler) GetCheckInAnalytics(c *gin.Context) {
	groupBy := c.DefaultQuery("group_by", "day")
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" || toStr == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "from and to query params are required"})
		return
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid from format, use YYYY-MM-DD"})
		return
	}

	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid to format, use YYYY-MM-DD"})
		return
	}

	ctx := c.Request.Context()

	switch groupBy {
	case "day":
		stats, err := h.analytics.GetCheckInStatsByDay(ctx, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch stats"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_by": "day", "from": fromStr, "to": toStr, "data": stats})
	case "program":
		stats, err := h.analytics.GetCheckInStatsByProgram(ctx, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to fetch stats"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"group_by": "program", "from": fromStr, "to": toStr, "data": stats})
	default:
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "group_by must be 'day' or 'program'"})
	}
}
