package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"castbot/internal/app"
	"castbot/pkg/systemd"
)

func main() {
	var cfgPath, envPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config yaml or json")
	flag.StringVar(&envPath, "env", ".env", "optional dotenv file with CASTBOT_* overrides")
	flag.Parse()

	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Println("fatal env:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}
	_, _ = systemd.Ready()
	go func() { _ = systemd.Watchdog(ctx) }()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	reason := app.StopSignal
loop:
	for {
		select {
		case sig := <-sigs:
			if sig != syscall.SIGHUP {
				break loop
			}
			_, _ = systemd.Reloading()
			if err := a.Reload(ctx); err != nil {
				fmt.Println("reload rejected:", err)
			}
			_, _ = systemd.Ready()
		case <-a.Done():
			reason = app.StopFatalError
			break loop
		}
	}

	_, _ = systemd.Stopping()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	if err := a.Err(); err != nil {
		fmt.Println("fatal:", err)
		stopCancel()
		os.Exit(1)
	}
}
