package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/service"
)

type CarGroupController struct {
	CarGroupService *service.CarGroupService
}

func (h *CarGroupController) List(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	carGroups, err := h.CarGroupService.ListCarGroups(ctx.Request.Context(), eventID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": carGroups})
}

func (h *CarGroupController) Create(ctx *gin.Context) {
	eventID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var details entity.CarGroupDetails
	err := ctx.ShouldBindJSON(&details)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	carGroup, err := h.CarGroupService.CreateCarGroup(ctx.Request.Context(), eventID, actorFrom(ctx).UserID, details)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": carGroup})
}

func (h *CarGroupController) Get(ctx *gin.Context) {
	carGroupID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	carGroup, err := h.CarGroupService.GetCarGroup(ctx.Request.Context(), carGroupID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": carGroup})
}

func (h *CarGroupController) Update(ctx *gin.Context) {
	carGroupID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var details entity.CarGroupDetails
	err := ctx.ShouldBindJSON(&details)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	carGroup, err := h.CarGroupService.UpdateCarGroup(ctx.Request.Context(), carGroupID, actorFrom(ctx).UserID, details)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": carGroup})
}

type capacityRequest struct {
	RoomAvailable int `json:"roomAvailable" binding:"required"`
}

func (h *CarGroupController) UpdateCapacity(ctx *gin.Context) {
	carGroupID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	var data capacityRequest
	err := ctx.ShouldBindJSON(&data)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	carGroup, err := h.CarGroupService.UpdateCarGroupCapacity(ctx.Request.Context(), carGroupID, actorFrom(ctx).UserID, data.RoomAvailable)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": carGroup})
}

func (h *CarGroupController) Join(ctx *gin.Context) {
	carGroupID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	carGroup, err := h.CarGroupService.JoinCarGroup(ctx.Request.Context(), carGroupID, actorFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": carGroup})
}

func (h *CarGroupController) Leave(ctx *gin.Context) {
	carGroupID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	carGroup, err := h.CarGroupService.LeaveCarGroup(ctx.Request.Context(), carGroupID, actorFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": carGroup})
}

func (h *CarGroupController) Delete(ctx *gin.Context) {
	carGroupID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	err := h.CarGroupService.DeleteCarGroup(ctx.Request.Context(), carGroupID, actorFrom(ctx).UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
