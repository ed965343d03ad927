package metricsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/v0idec/event-bot/internal/lib/logger/sl"
)

type App struct {
	log    *slog.Logger
	port   int
	reg    *prometheus.Registry
	server *http.Server

	DeliveredCounter   prometheus.Counter
	SendFailureCounter prometheus.Counter
	CycleDuration      prometheus.Histogram
}

func New(log *slog.Logger, port int) *App {
	reg := prometheus.NewRegistry()

	delivered := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "event_deliveries_total",
		Help: "Total number of reminders delivered and recorded.",
	})
	sendFailures := promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "event_send_failures_total",
		Help: "Total number of failed or rejected notification sends.",
	})
	cycleDuration := promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_cycle_duration_seconds",
		Help:    "Duration of scheduler scan-and-deliver cycles.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.3, 0.6, 1, 3, 6, 9, 20},
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &App{
		log:                log,
		port:               port,
		reg:                reg,
		server:             &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux},
		DeliveredCounter:   delivered,
		SendFailureCounter: sendFailures,
		CycleDuration:      cycleDuration,
	}
}

func (a *App) MustRun() {
	err := a.Run()
	if errors.Is(err, http.ErrServerClosed) {
		a.log.Info("metrics server closed", sl.Err(err))
	} else if err != nil {
		a.log.Error("failed to start metrics server", sl.Err(err))
		panic(err)
	}
}

func (a *App) Run() error {
	const op = "metricsapp.Run"
	log := a.log.With(slog.String("op", op), slog.Int("port", a.port))

	log.Info("exposing Prometheus metrics")

	return a.server.ListenAndServe()
}

func (a *App) Stop() error {
	const op = "metricsapp.Stop"
	a.log.With(slog.String("op", op)).Info("stopping metrics server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return a.server.Shutdown(ctx)
}
