package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joeyave/patas-arriba/configs"
	"github.com/joeyave/patas-arriba/controller"
	"github.com/joeyave/patas-arriba/entity"
	"github.com/joeyave/patas-arriba/migrations"
	"github.com/joeyave/patas-arriba/push"
	"github.com/joeyave/patas-arriba/repository"
	"github.com/joeyave/patas-arriba/room"
	"github.com/joeyave/patas-arriba/service"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

func main() {
	err := run()
	if err != nil {
		log.Fatal().Err(err).Msg("Fatal error")
	}
}

func run() error {
	config, err := configs.Load()
	if err != nil {
		return err
	}
	configs.SetupLogger(config.LogLevel, config.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := repository.Connect(ctx, config.MongoURI, config.MongoPing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(ctx)
	}()

	err = migrations.EnsureIndexes(ctx, mongoClient, config.MongoDBName)
	if err != nil {
		return err
	}

	stores := newStores(mongoClient, config.MongoDBName)

	var sender push.Sender = push.Discard{}
	if config.PushEnabled() {
		sender = push.NewGateway(push.Config{
			Subject:    config.VAPIDSubject,
			PublicKey:  config.VAPIDPublicKey,
			PrivateKey: config.VAPIDPrivateKey,
			TTL:        config.PushTTL,
			Timeout:    config.PushTimeout,
			Attempts:   config.PushAttempts,
		})
	} else {
		log.Warn().Msg("VAPID keys are not set, push notifications are disabled")
	}

	policy := entity.PermissiveStatusPolicy
	if config.ForwardOnlyStatus {
		policy = entity.ForwardOnlyStatusPolicy
	}

	registry := room.NewRegistry(config.RegistryShards)
	notificationService := service.NewNotificationService(stores, sender, service.NotificationConfig{
		Workers:     config.NotificationWorkers,
		QueueSize:   config.NotificationQueueSize,
		Parallelism: config.NotificationParallelism,
	})
	messageService := service.NewMessageService(stores, registry, notificationService)

	router := controller.NewRouter(controller.Controllers{
		Auth:             controller.NewAuthenticator(config.JWTSecret),
		Event:            &controller.EventController{EventService: service.NewEventService(stores, policy)},
		Attendee:         &controller.AttendeeController{AttendeeService: service.NewAttendeeService(stores)},
		CarGroup:         &controller.CarGroupController{CarGroupService: service.NewCarGroupService(stores)},
		Message:          &controller.MessageController{MessageService: messageService},
		PushSubscription: &controller.PushSubscriptionController{NotificationService: notificationService},
		Socket:           controller.NewSocketController(registry, messageService, config.AllowedOrigins, config.SocketBufferSize, config.SocketSendTimeout),
	})

	server := &http.Server{
		Addr:              config.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notificationService.Run(gCtx)
	})
	g.Go(func() error {
		log.Info().Str("address", server.Addr).Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info().Msg("Program stopped cleanly")
	return err
}

func newStores(mongoClient *mongo.Client, dbName string) service.Stores {
	return service.Stores{
		Events:            repository.NewEventRepository(mongoClient, dbName),
		Attendees:         repository.NewAttendeeRepository(mongoClient, dbName),
		CarGroups:         repository.NewCarGroupRepository(mongoClient, dbName),
		Messages:          repository.NewMessageRepository(mongoClient, dbName),
		PushSubscriptions: repository.NewPushSubscriptionRepository(mongoClient, dbName),
		Users:             repository.NewUserRepository(mongoClient, dbName),
	}
}
