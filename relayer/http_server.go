package relayer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AvaProtocol/mizan-relayer/version"
)

type HttpErrorResp struct {
	Error string `json:"error"`
}

// requestValidator plugs validator/v10 into echo's c.Validate
type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func (r *Relayer) initSentry() {
	if r.config.SentryDsn == "" {
		r.logger.Info("SENTRY_DSN not found, Sentry integration is disabled.")
		return
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              r.config.SentryDsn,
		ServerName:       r.config.ServerName,
		Environment:      string(r.config.Environment),
		Release:          version.Release(),
		AttachStacktrace: true,
		TracesSampleRate: 1.0,
	}); err != nil {
		r.logger.Errorf("Sentry initialization failed: %v", err)
		return
	}
	r.sentryEnabled = true
	r.logger.Infof("Sentry initialized successfully for environment: %s", r.config.Environment)
}

func (r *Relayer) newHttpServer(gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &requestValidator{validator: validator.New()}

	e.Use(middleware.Logger())

	// Register Sentry before Recover so panics are reported
	if r.sentryEnabled {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	e.Use(middleware.Recover())

	e.GET("/up", func(c echo.Context) error {
		if r.status == runningStatus {
			return c.String(http.StatusOK, "up")
		}

		return c.String(http.StatusServiceUnavailable, "pending...")
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	e.POST("/flashloan", r.handleFlashLoan)

	return e
}

func (r *Relayer) handleFlashLoan(c echo.Context) error {
	var req FlashLoanRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &HttpErrorResp{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &HttpErrorResp{Error: err.Error()})
	}

	result, err := r.flashLoans.Process(c.Request().Context(), &req)
	if err == nil {
		return c.JSON(http.StatusOK, result)
	}

	switch {
	case errors.Is(err, ErrSimulationFailed):
		return c.JSON(http.StatusBadRequest, &HttpErrorResp{Error: SimulationFailedMessage})
	case errors.Is(err, ErrNoProfit):
		return c.JSON(http.StatusBadRequest, &HttpErrorResp{Error: NoProfitMessage})
	case errors.Is(err, ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, &HttpErrorResp{Error: err.Error()})
	case errors.Is(err, ErrSignatureReused):
		return c.JSON(http.StatusConflict, &HttpErrorResp{Error: err.Error()})
	}

	r.logger.Error("Error handling flash loan request", "error", err)
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	} else {
		sentryCapture(err)
	}
	return c.JSON(http.StatusInternalServerError, &HttpErrorResp{Error: InternalError})
}

func (r *Relayer) startHttpServer(ctx context.Context) {
	addr := r.config.HttpBindAddress
	r.http = r.newHttpServer(r.registry)

	r.logger.Info("HTTP server listening", "address", addr)
	goSafe(func() {
		if err := r.http.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("HTTP server stopped", "address", addr, "error", err)
		}
	})
}

func (r *Relayer) stopHttpServer() {
	if r.http == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.http.Shutdown(ctx); err != nil {
		r.logger.Warn("HTTP server shutdown", "error", err)
	}
}
