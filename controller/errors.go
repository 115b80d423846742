package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/patas-arriba/helpers"
	"github.com/joeyave/patas-arriba/service"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var kindStatus = map[service.Kind]int{
	service.KindNotFound:          http.StatusNotFound,
	service.KindInvalidState:      http.StatusConflict,
	service.KindConflict:          http.StatusConflict,
	service.KindCapacityExceeded:  http.StatusConflict,
	service.KindUnauthorized:      http.StatusForbidden,
	service.KindValidationFailure: http.StatusBadRequest,
}

func respondError(ctx *gin.Context, err error) {
	var serviceErr *service.Error
	if errors.As(err, &serviceErr) {
		ctx.JSON(kindStatus[serviceErr.Kind], gin.H{"error": serviceErr.Message, "code": serviceErr.Code})
		return
	}

	log.Error().Err(err).Str("path", ctx.FullPath()).Msg("Error:")
	_ = ctx.Error(err)
	ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "Internal"})
}

func respondBadRequest(ctx *gin.Context, err error) {
	ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "BadRequest"})
}

// objectIDParam writes a 400 and returns false when the path parameter is not an object id.
func objectIDParam(ctx *gin.Context, name string) (primitive.ObjectID, bool) {
	ID, ok := helpers.ParseObjectID(ctx.Param(name))
	if !ok {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "code": "BadRequest"})
	}
	return ID, ok
}
