// Package main is the entry point for the mandi comparison service, which
// tells a farmer which market (mandi) yields the highest net profit for a load.
package main

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/mandi-compare/internal/catalog"
	"github.com/yourorg/mandi-compare/internal/config"
	"github.com/yourorg/mandi-compare/internal/otel"
)

// main is the entry point for the application
func main() {
	cfg := config.MustLoad(os.Getenv(config.EnvPrefix + "_CONFIG_FILE"))
	config.ConfigureLogging(cfg.LogLevel, cfg.LogFormat)
	logrus.Info("Logging configured")

	shutdown := otel.InitTracer(cfg.OtelEndpoint)
	defer shutdown()

	snapshot := loadCatalog(cfg)

	server := NewServer(cfg, snapshot)
	server.Start()
}

// loadCatalog opens the configured catalog and audits its prices. A catalog
// that fails validation is fatal.
func loadCatalog(cfg *config.Config) *catalog.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	snapshot, err := catalog.Open(ctx, cfg.Catalog)
	if err != nil {
		logrus.Fatalf("Failed to load catalog: %v", err)
	}

	if cfg.PriceAuditIQR > 0 {
		if outliers := catalog.AuditPrices(snapshot, cfg.PriceAuditIQR); len(outliers) > 0 {
			logrus.Warnf("Catalog has %d price outliers", len(outliers))
		}
	}

	return snapshot
}
