package main

import (
	"guestpulse-backend/internal/config"
	"guestpulse-backend/internal/server"
	"log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	srv := server.New(cfg)
	if err := srv.Initialize(); err != nil {
		srv.Echo.Logger.Fatal(err)
	}

	srv.Echo.Logger.Fatal(srv.Start())
}
