package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/service"
)

type PushSubscriptionController struct {
	NotificationService *service.NotificationService
}

func (h *PushSubscriptionController) Subscribe(ctx *gin.Context) {
	var subscription entity.PushSubscription
	err := ctx.ShouldBindJSON(&subscription)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	saved, err := h.NotificationService.Subscribe(ctx.Request.Context(), actorFrom(ctx).UserID, subscription)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": saved})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

// Unsubscribe removes one device, or all devices of the caller when no endpoint is given.
func (h *PushSubscriptionController) Unsubscribe(ctx *gin.Context) {
	var data unsubscribeRequest
	if ctx.Request.ContentLength > 0 {
		err := ctx.ShouldBindJSON(&data)
		if err != nil {
			respondBadRequest(ctx, err)
			return
		}
	}

	deleted, err := h.NotificationService.Unsubscribe(ctx.Request.Context(), actorFrom(ctx).UserID, data.Endpoint)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": deleted}})
}
