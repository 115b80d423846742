package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joeyave/patas-arriba/configs"
	"github.com/joeyave/patas-arriba/repository"
	"github.com/joeyave/patas-arriba/service"
)

func main() {
	config, err := configs.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	configs.SetupLogger(config.LogLevel, "console")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	mongoClient, err := repository.Connect(ctx, config.MongoURI, config.MongoPing)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	maintenanceService := service.NewMaintenanceService(service.Stores{
		Events:    repository.NewEventRepository(mongoClient, config.MongoDBName),
		Attendees: repository.NewAttendeeRepository(mongoClient, config.MongoDBName),
		CarGroups: repository.NewCarGroupRepository(mongoClient, config.MongoDBName),
		Messages:  repository.NewMessageRepository(mongoClient, config.MongoDBName),
	})

	report, err := maintenanceService.Reconcile(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Cleanup finished. events=%d orphanAttendees=%d orphanCarGroups=%d orphanMessages=%d abandonedCarGroups=%d removedPassengers=%d\n",
		report.Events, report.OrphanAttendees, report.OrphanCarGroups, report.OrphanMessages,
		report.AbandonedCarGroups, report.RemovedPassengers)
}
