package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/service"
)

type AttendeeController struct {
	AttendeeService *service.AttendeeService
}

func (h *AttendeeController) Join(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	attendee, err := h.AttendeeService.JoinEvent(ctx.Request.Context(), eventID, actorFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": attendee})
}

func (h *AttendeeController) List(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	attendees, err := h.AttendeeService.ListAttendees(ctx.Request.Context(), eventID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": attendees})
}

func (h *AttendeeController) Leave(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	err := h.AttendeeService.LeaveEvent(ctx.Request.Context(), eventID, actorFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

type arrivalRequest struct {
	WillArriveOnMyOwn *bool `json:"willArriveOnMyOwn" binding:"required"`
}

func (h *AttendeeController) SetArrival(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var data arrivalRequest
	err := ctx.ShouldBindJSON(&data)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	attendee, err := h.AttendeeService.SetArrivalPreference(ctx.Request.Context(), eventID, actorFrom(ctx).UserID, *data.WillArriveOnMyOwn)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": attendee})
}

type attendanceRequest struct {
	Attendance entity.Attendance `json:"attendance" binding:"required"`
}

func (h *AttendeeController) SetAttendance(ctx *gin.Context) {
	attendeeID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var data attendanceRequest
	err := ctx.ShouldBindJSON(&data)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	attendee, err := h.AttendeeService.SetAttendance(ctx.Request.Context(), attendeeID, data.Attendance)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": attendee})
}

type taskRequest struct {
	Task string `json:"task"`
}

func (h *AttendeeController) SetTask(ctx *gin.Context) {
	attendeeID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var data taskRequest
	err := ctx.ShouldBindJSON(&data)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	attendee, err := h.AttendeeService.SetTask(ctx.Request.Context(), attendeeID, data.Task)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": attendee})
}
