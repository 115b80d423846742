package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/service"
)

type EventController struct {
	EventService *service.EventService
}

func (h *EventController) List(ctx *gin.Context) {
	events, err := h.EventService.ListUpcomingEvents(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": events})
}

func (h *EventController) Get(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	event, err := h.EventService.GetEvent(ctx.Request.Context(), eventID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": event})
}

func (h *EventController) Create(ctx *gin.Context) {
	var draft entity.EventDraft
	err := ctx.ShouldBindJSON(&draft)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	event, err := h.EventService.CreateEvent(ctx.Request.Context(), actorFrom(ctx).UserID, draft)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": event})
}

type statusRequest struct {
	Status entity.EventStatus `json:"status" binding:"required"`
}

func (h *EventController) TransitionStatus(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var data statusRequest
	err := ctx.ShouldBindJSON(&data)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	event, err := h.EventService.TransitionEventStatus(ctx.Request.Context(), eventID, data.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": event})
}

func (h *EventController) Delete(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	err := h.EventService.DeleteEvent(ctx.Request.Context(), eventID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
