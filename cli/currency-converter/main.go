package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sunijk/sunij-currencyconversionapi/cli/cmd"
	"github.com/sunijk/sunij-currencyconversionapi/config"
)

func main() {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		_ = level.Warn(logger).Log("msg", "loading .env", "err", err)
	}

	v := viper.New()
	config.BindEnv(v)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cmd.Execute(ctx, cmd.Options{
		Viper:  v,
		Logger: logger,
	})
	stop()

	if err != nil {
		_ = level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}
