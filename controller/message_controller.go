package controller

import (
	"net/http"
	"reflect"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/schema"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/service"
)

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.RegisterConverter(time.Time{}, func(value string) reflect.Value {
		t, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(t)
	})
	return d
}

type messagesQuery struct {
	Before time.Time `schema:"before"`
	Limit  int       `schema:"limit"`
}

type MessageController struct {
	MessageService *service.MessageService
}

func (h *MessageController) List(ctx *gin.Context) {
	relatedID, ok := objectIDParam(ctx, "relatedId")
	if !ok {
		return
	}

	var query messagesQuery
	err := decoder.Decode(&query, ctx.Request.URL.Query())
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	messages, err := h.MessageService.ListMessages(ctx.Request.Context(), actorFrom(ctx).UserID,
		entity.RelatedType(ctx.Param("relatedType")), relatedID, query.Before, query.Limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": messages})
}

type messageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *MessageController) Create(ctx *gin.Context) {
	relatedID, ok := objectIDParam(ctx, "relatedId")
	if !ok {
		return
	}

	var data messageRequest
	err := ctx.ShouldBindJSON(&data)
	if err != nil {
		respondBadRequest(ctx, err)
		return
	}

	message, err := h.MessageService.CreateMessage(ctx.Request.Context(), actorFrom(ctx).UserID,
		entity.RelatedType(ctx.Param("relatedType")), relatedID, data.Text)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"data": message})
}

func (h *MessageController) Delete(ctx *gin.Context) {
	messageID, ok := objectIDParam(ctx, "id")
	if !ok {
		return
	}

	message, err := h.MessageService.DeleteMessage(ctx.Request.Context(), actorFrom(ctx), messageID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": message})
}
