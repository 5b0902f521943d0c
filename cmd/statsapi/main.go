package main

import (
	"flag"
	"log"

	"copyloop/internal/api"
	"copyloop/internal/config"
	"copyloop/internal/feedback"

	"go.uber.org/zap"
)

// #region main

func main() {
	dbPath := flag.String("db", config.EnvOr("COPYLOOP_DB", "copyloop.db"), "path to copyloop.db")
	addr := flag.String("addr", config.EnvOr("COPYLOOP_API_ADDR", ":8080"), "listen address")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	store, err := feedback.NewStore(*dbPath, logger)
	if err != nil {
		log.Fatalf("failed to open feedback store: %v", err)
	}
	defer store.Close()

	server := api.NewServer(store, logger)
	if err := server.Run(*addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

// #endregion main
