package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openalpha/levfarm/api"
)

// Every flag can also be set from the environment, e.g. LEVFARM_API_BLOCK_TIME=2s
const envPrefix = "LEVFARM_API"

const (
	flagHost          = "host"
	flagPort          = "port"
	flagSeed          = "seed"
	flagBlockTime     = "block-time"
	flagAutoAdvance   = "auto-advance"
	flagMaxPriceAge   = "max-price-age"
	flagNoRateLimit   = "no-rate-limit"
	flagLogLevel      = "log-level"
	shutdownTimeout   = 10 * time.Second
	defaultLogLevel   = "info"
	defaultBlockTime  = 6 * time.Second
	defaultPriceAgeS  = 3600
	defaultListenPort = 8080
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "levfarm-api",
		Short:        "levfarm REST and websocket API over an in-memory chain",
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Flags().String(flagHost, "0.0.0.0", "Server host")
	cmd.Flags().Int(flagPort, defaultListenPort, "Server port")
	cmd.Flags().Bool(flagSeed, true, "Open a demo farm position and initialize the delta-neutral vault")
	cmd.Flags().Duration(flagBlockTime, defaultBlockTime, "Chain time added by each block")
	cmd.Flags().Duration(flagAutoAdvance, 0, "Produce a block on this wall-clock interval (0 disables)")
	cmd.Flags().Int64(flagMaxPriceAge, defaultPriceAgeS, "Delta-neutral oracle staleness bound in seconds")
	cmd.Flags().Bool(flagNoRateLimit, false, "Disable rate limiting (benchmarks)")
	cmd.Flags().String(flagLogLevel, defaultLogLevel, "Log level (debug, info, warn, error)")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	host := v.GetString(flagHost)
	port := v.GetInt(flagPort)
	seed := v.GetBool(flagSeed)
	blockTime := v.GetDuration(flagBlockTime)
	autoAdvance := v.GetDuration(flagAutoAdvance)
	maxPriceAge := v.GetInt64(flagMaxPriceAge)
	noRateLimit := v.GetBool(flagNoRateLimit)
	level := v.GetString(flagLogLevel)

	filter, err := log.ParseLogLevel(level)
	if err != nil {
		return err
	}
	logger := log.NewLogger(cmd.OutOrStderr(), log.FilterOption(filter))

	config := api.DefaultConfig()
	config.Host = host
	config.Port = port
	config.AutoAdvance = autoAdvance
	config.DisableRateLimit = noRateLimit
	config.Service = api.ServiceConfig{
		Seed:        seed,
		MaxPriceAge: maxPriceAge,
		BlockTime:   blockTime,
	}

	server, err := api.NewServer(config, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
