package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-boards/internal/config"
	v1 "github.com/adanyl0v/go-boards/internal/delivery/http/v1"
	"github.com/adanyl0v/go-boards/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	v1Handler := newV1Handler()
	router := gin.New()
	router.Use(v1Handler.HandleRequestID)
	router.Use(v1Handler.HandleRequestLogger)
	router.Use(gin.Recovery())
	v1.RegisterRoutes(router, v1Handler)

	server := &http.Server{
		Addr:        net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler:     router,
		ReadTimeout: httpCfg.ReadTimeout,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func newV1Handler() v1.Handler {
	jwtCfg := config.Global().JWT
	return v1.New(
		globalLogger,
		globalStore,
		services.NewBoardService(globalLogger, globalStore, globalBoardCache),
		services.NewOrderService(globalLogger, globalStore, globalBoardCache),
		services.NewSubtaskService(globalLogger, globalStore, globalBoardCache),
		jwtCfg.Issuer,
		jwtCfg.SigningKey,
	)
}
