package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-checkout/db"
	"github.com/xenking/kart-checkout/internal/domain/auth"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

const (
	upsertRestaurantSQL = `INSERT INTO restaurants (id, name) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`
	upsertDishSQL = `INSERT INTO dishes (id, restaurant_id, name, price, active) VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET restaurant_id = EXCLUDED.restaurant_id, name = EXCLUDED.name,
		price = EXCLUDED.price, active = EXCLUDED.active`
	upsertPaymentMethodSQL = `INSERT INTO payment_methods (id, name, code, category, active) VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code,
		category = EXCLUDED.category, active = EXCLUDED.active`
	upsertAccountSQL = `INSERT INTO accounts (id, display_name, email) VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email`
	upsertSessionSQL = `INSERT INTO account_sessions (token_hash, account_id) VALUES ($1, $2)
	ON CONFLICT (token_hash) DO UPDATE SET account_id = EXCLUDED.account_id`
	upsertAddressSQL = `INSERT INTO addresses (id, account_id, label, line1, line2, city, postal_code, phone)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET account_id = EXCLUDED.account_id, label = EXCLUDED.label,
		line1 = EXCLUDED.line1, line2 = EXCLUDED.line2, city = EXCLUDED.city,
		postal_code = EXCLUDED.postal_code, phone = EXCLUDED.phone`
	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
		scopes = EXCLUDED.scopes, active = TRUE`
)

func main() {
	var (
		databaseURL string
		seedFile    string
		pepper      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "file", "", "seed data JSON file, optionally .json.gz (default: embedded data set)")
	flag.StringVar(&pepper, "token-pepper", "", "HMAC pepper for token hashing (or KART_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("KART_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedFile, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile, pepper string) error {
	ds, err := loadDataset(seedFile, db.Seed)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	hasher := auth.NewAuthenticator(nil, nil, []byte(pepper))
	return seed(ctx, pool, ds, hasher.Hash)
}

// seed upserts the data set in two dependency levels; tables within a level
// are written concurrently.
func seed(ctx context.Context, pool *pgxpool.Pool, ds *dataset, hash func(string) string) error {
	var restaurants, paymentMethods, accounts, apiKeys pgx.Batch
	for _, r := range ds.Restaurants {
		restaurants.Queue(upsertRestaurantSQL, r.ID, r.Name)
	}
	for _, p := range ds.PaymentMethods {
		paymentMethods.Queue(upsertPaymentMethodSQL, p.ID, p.Name, p.Code, p.Category, !p.Inactive)
	}
	for _, a := range ds.Accounts {
		accounts.Queue(upsertAccountSQL, a.ID, a.DisplayName, a.Email)
	}
	for _, k := range ds.APIKeys {
		scopes := k.Scopes
		if scopes == nil {
			scopes = []string{}
		}
		apiKeys.Queue(upsertAPIKeySQL, k.ID, hash(k.Key), k.Name, scopes)
	}

	var dishes, addresses, sessions pgx.Batch
	for _, d := range ds.Dishes {
		dishes.Queue(upsertDishSQL, d.ID, d.RestaurantID, d.Name, d.Price, !d.Inactive)
	}
	for _, a := range ds.Accounts {
		for _, ad := range a.Addresses {
			addresses.Queue(upsertAddressSQL, ad.ID, a.ID, ad.Label, ad.Line1, ad.Line2, ad.City, ad.PostalCode, ad.Phone)
		}
		if a.SessionToken != "" {
			sessions.Queue(upsertSessionSQL, hash(a.SessionToken), a.ID)
		}
	}

	levels := [][]namedBatch{
		{{"restaurants", &restaurants}, {"payment methods", &paymentMethods}, {"accounts", &accounts}, {"api keys", &apiKeys}},
		{{"dishes", &dishes}, {"addresses", &addresses}, {"account sessions", &sessions}},
	}
	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, nb := range level {
			g.Go(func() error {
				if err := pool.SendBatch(gctx, nb.batch).Close(); err != nil {
					return errors.Wrapf(err, "seed %s", nb.name)
				}
				slog.Info("seeded", slog.String("table", nb.name), slog.Int("rows", nb.batch.Len()))
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

type namedBatch struct {
	name  string
	batch *pgx.Batch
}
