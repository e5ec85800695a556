// Command seed-db applies the schema and upserts customers and products from
// JSON seed files.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-orders/internal/storage/postgres"
)

func main() {
	var (
		databaseURL   string
		customersFile string
		productsFile  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&customersFile, "customers-file", "", "customers JSON file, optionally .gz (default: embedded fixtures)")
	flag.StringVar(&productsFile, "products-file", "", "products JSON file, optionally .gz (default: embedded fixtures)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, customersFile, productsFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}

	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, customersFile, productsFile string) error {
	customers, err := loadCustomers(customersFile)
	if err != nil {
		return errors.Wrap(err, "load customers")
	}
	products, err := loadProducts(productsFile)
	if err != nil {
		return errors.Wrap(err, "load products")
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := postgres.NewCustomerRepository(pool).Upsert(ctx, customers); err != nil {
			return errors.Wrap(err, "seed customers")
		}
		lg.Info("Upserted customers", zap.Int("count", len(customers)))
		return nil
	})
	g.Go(func() error {
		if err := postgres.NewProductRepository(pool).Upsert(ctx, products); err != nil {
			return errors.Wrap(err, "seed products")
		}
		lg.Info("Upserted products", zap.Int("count", len(products)))
		return nil
	})
	return g.Wait()
}
