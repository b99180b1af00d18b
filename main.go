package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Speshl/gimbal_client/internal/config"
	"github.com/Speshl/gimbal_client/internal/gimbal"
	"github.com/Speshl/gimbal_client/internal/vehiclelink"
	"golang.org/x/sync/errgroup"
)

const defaultVehicleAddr = "127.0.0.1:14550"

func main() {
	cfg := config.GetConfig()

	link, err := vehiclelink.Dial(defaultVehicleAddr, 255, 190, 1)
	if err != nil {
		log.Fatalf("error connecting to vehicle: %s", err)
	}
	defer link.Close()
	link.SetParametersReady(true)

	settings := config.GimbalSettings{Cfg: cfg.GimbalCfg}
	controller := gimbal.NewController(link, settings)
	defer controller.Close()

	if err := run(controller); err != nil {
		log.Printf("client shutdown with error: %s", err.Error())
	} else {
		log.Println("client shutdown successfully")
	}
}

func run(controller *gimbal.Controller) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)
	log.Println("starting...")

	group.Go(func() error {
		return controller.Run(groupCtx)
	})

	group.Go(func() error {
		signalChannel := make(chan os.Signal, 1)
		signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)
		select {
		case sig := <-signalChannel:
			log.Printf("received signal: %s\n", sig)
			cancel()
			return fmt.Errorf("received signal: %s", sig)
		case <-groupCtx.Done():
			log.Println("closing signal goroutine")
			return groupCtx.Err()
		}
	})

	err := group.Wait()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Println("context was cancelled")
			return nil
		}
		return fmt.Errorf("controller stopping due to error - %w", err)
	}

	log.Println("shutting down")
	return nil
}
