package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"fin_tracker/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type Server struct {
	httpServer *http.Server
	cfg        *config.Config
}

func NewServer(cfg *config.Config, controller *Controller, sessions SessionStore) *Server {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(Auth(sessions))

		r.Route("/investments", func(r chi.Router) {
			r.Get("/", controller.GetInvestments)
			r.Post("/", controller.AddInvestment)
			r.Put("/{id}", controller.UpdateInvestment)
			r.Delete("/{id}", controller.DeleteInvestment)

			r.Get("/portfolio/summary", controller.GetPortfolioSummary)
			r.Get("/portfolio/report", controller.ExportPortfolioReport)
			r.Post("/portfolio/report/backup", controller.BackupPortfolioReport)
		})

		r.Route("/market", func(r chi.Router) {
			r.Get("/price", controller.GetMarketPrices)
			r.Get("/price/{symbol}", controller.GetMarketPrice)
			r.Get("/stats", controller.GetMarketStats)
			r.Post("/cache/clear", controller.ClearPriceCache)
		})

		r.Route("/stocks", func(r chi.Router) {
			r.Get("/list", controller.SearchStocks)
			r.Get("/{symbol}", controller.GetStockDetails)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      r,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		cfg: cfg,
	}
}

func (s *Server) Start() {
	slog.Info("http server started", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.String("err", err.Error()))
		panic(err)
	}
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown error", slog.String("err", err.Error()))
	}
}
