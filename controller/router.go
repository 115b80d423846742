package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/helpers"
)

type Controllers struct {
	Auth             *Authenticator
	Event            *EventController
	Attendee         *AttendeeController
	CarGroup         *CarGroupController
	Message          *MessageController
	PushSubscription *PushSubscriptionController
	Socket           *SocketController
}

func NewRouter(c Controllers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), helpers.GinLogger())

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	participant := RequireRole(participantRoles...)
	organizer := RequireRole(entity.RoleOrganizer, entity.RoleAdmin)
	admin := RequireRole(entity.RoleAdmin)

	r.GET("/socket", c.Auth.Authenticate(), c.Socket.Connect)

	api := r.Group("/api", c.Auth.Authenticate())
	{
		api.GET("/event", c.Event.List)
		api.GET("/event/:id", c.Event.Get)
		api.POST("/event", organizer, c.Event.Create)
		api.PATCH("/event/:id/status", organizer, c.Event.TransitionStatus)
		api.DELETE("/event/:id", organizer, c.Event.Delete)

		api.POST("/attendee/:id", participant, c.Attendee.Join)
		api.GET("/attendee/:id", c.Attendee.List)
		api.DELETE("/attendee/:id", participant, c.Attendee.Leave)
		api.PATCH("/attendee/:id/arrival", participant, c.Attendee.SetArrival)
		api.PATCH("/attendee/:id/attendance", admin, c.Attendee.SetAttendance)
		api.PATCH("/attendee/:id/task", admin, c.Attendee.SetTask)

		api.GET("/car-group/list/:id", c.CarGroup.List)
		api.POST("/car-group/:id", participant, c.CarGroup.Create)
		api.GET("/car-group/:id", c.CarGroup.Get)
		api.PUT("/car-group/:id", participant, c.CarGroup.Update)
		api.PATCH("/car-group/:id/capacity", participant, c.CarGroup.UpdateCapacity)
		api.PATCH("/car-group/:id/join", participant, c.CarGroup.Join)
		api.PATCH("/car-group/:id/leave", participant, c.CarGroup.Leave)
		api.DELETE("/car-group/:id", participant, c.CarGroup.Delete)

		api.GET("/message/:relatedType/:relatedId", participant, c.Message.List)
		api.POST("/message/:relatedType/:relatedId", participant, c.Message.Create)
		api.DELETE("/message/:id", participant, c.Message.Delete)

		api.POST("/pushsubscription", c.PushSubscription.Subscribe)
		api.DELETE("/pushsubscription", c.PushSubscription.Unsubscribe)
	}

	return r
}
