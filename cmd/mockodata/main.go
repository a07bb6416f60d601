// Command mockodata serves the shop-floor OData service from local fixtures
// so the portal can run without an SAP system.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"shopfloor/internal/mockodata"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	var addr, fixtures string
	flag.StringVar(&addr, "a", "localhost:8081", "listen address")
	flag.StringVar(&fixtures, "f", "", "fixtures JSON file, built-in sample data when empty")
	flag.Parse()

	addr = getEnv("MOCK_ODATA_ADDRESS", addr)
	fixtures = getEnv("MOCK_ODATA_FIXTURES", fixtures)

	fx := mockodata.SampleFixtures(time.Now())
	if fixtures != "" {
		loaded, err := mockodata.LoadFixtures(fixtures)
		if err != nil {
			slog.Error("failed to load fixtures", "error", err)
			os.Exit(1)
		}
		fx = loaded
	}

	backend, err := mockodata.NewServer(fx)
	if err != nil {
		slog.Error("failed to build mock server", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Mount("/", backend.Handler())

	slog.Info("mock odata listening",
		"addr", addr,
		"service", mockodata.ServicePath,
		"users", len(fx.Users),
		"planned", len(fx.PlannedOrders),
		"production", len(fx.ProductionOrders),
	)
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
