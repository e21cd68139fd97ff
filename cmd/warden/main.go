package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dyluth/anchor/internal/config"
	"github.com/dyluth/anchor/internal/guard"
	"github.com/dyluth/anchor/internal/instance"
	"github.com/dyluth/anchor/internal/widget"
	"github.com/dyluth/anchor/pkg/bridge"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. Load configuration (ANCHOR_CONFIG overrides the default path)
	configPath := os.Getenv("ANCHOR_CONFIG")
	if configPath == "" {
		configPath = "anchor.yml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to load %s: %v\n", configPath, err)
		os.Exit(1)
	}

	// 2. Resolve Redis address (config > ANCHOR_REDIS_ADDR > inferred host)
	var configAddr string
	if cfg.Redis != nil {
		configAddr = cfg.Redis.Addr
	}
	redisAddr := instance.ResolveRedisAddr(configAddr)

	// 3. Create bridge client
	client, err := bridge.NewClient(&redis.Options{Addr: redisAddr}, cfg.Instance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create bridge client: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	// 4. Verify Redis connectivity
	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible at %s: %v\n", redisAddr, err)
		os.Exit(1)
	}

	fmt.Printf("Warden starting for instance '%s' (redis %s)\n", cfg.Instance, redisAddr)

	// 5. Create the widget registry. The embedding surface registers its
	// map factory here; until it does, the interceptor polls for it.
	registry := widget.NewRegistry()

	// 6. Create the guard engine
	engine := guard.NewEngine(client, cfg, registry)

	// 7. Setup graceful shutdown
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	// 8. Run the guard in a goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Run(runCtx)
	}()

	// 9. Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		fmt.Printf("Received signal %v, shutting down gracefully...\n", sig)
		cancel()
		<-errCh
	case runErr := <-errCh:
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Warden error: %v\n", runErr)
			os.Exit(1)
		}
	}

	fmt.Println("Warden stopped")
}
