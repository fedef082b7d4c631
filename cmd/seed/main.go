package main

import (
	"context"
	"flag"
	"os"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/zuetani/earth-tribe/config"
	"github.com/zuetani/earth-tribe/internal/application"
	esinfra "github.com/zuetani/earth-tribe/internal/infrastructure/elasticsearch"
	pginfra "github.com/zuetani/earth-tribe/internal/infrastructure/postgres"
	"github.com/zuetani/earth-tribe/internal/seed"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

func main() {
	travellers := flag.Int("travellers", 12, "number of generated travellers")
	fakerSeed := flag.Int64("seed", 42, "gofakeit seed; the same seed yields the same travellers")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+" seed", cfg.Env)

	if err := run(cfg, logger, *travellers, *fakerSeed); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logrus.Logger, travellers int, fakerSeed int64) error {
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, pginfra.PoolOptions{DSN: cfg.PostgresDSN(), MaxConns: 4})
	if err != nil {
		helpers.LogError(logger, "failed to connect to postgres", err, nil)
		return err
	}
	defer pool.Close()

	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		helpers.LogError(logger, "migration failed", err, nil)
		return err
	}

	users := pginfra.NewUserRepository(pool)
	groups := pginfra.NewGroupRepository(pool)
	content := application.NewContentService(pginfra.NewPostRepository(pool), users, groups, logger)

	var index *esinfra.Index
	if cfg.UseElasticsearch() {
		es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "elasticsearch client", err, nil)
		} else {
			idx := esinfra.NewIndex(es, cfg.ESPostsIndex, cfg.ESUsersIndex)
			if err := idx.EnsureIndices(ctx); err != nil {
				helpers.LogError(logger, "elasticsearch indices", err, nil)
			} else {
				content.Index = idx
				index = idx
			}
		}
	}

	s := &seed.Seeder{
		Identities:  pginfra.NewIdentityRepository(pool),
		Users:       users,
		Groups:      groups,
		GroupWriter: groups,
		Content:     content,
		Logger:      logger,
		Faker:       gofakeit.New(fakerSeed),
	}
	if index != nil {
		s.Index = index
	}
	sum, err := s.Run(ctx, travellers)
	if err != nil {
		helpers.LogError(logger, "seed failed", err, logrus.Fields{"created": sum.AccountsCreated})
		return err
	}
	if err := content.Reindex(ctx); err != nil {
		// the server reindexes on start as well
		helpers.LogError(logger, "elasticsearch reindex", err, nil)
	}
	helpers.LogInfo(logger, "seed complete", logrus.Fields{
		"accounts_created": sum.AccountsCreated,
		"accounts_skipped": sum.AccountsSkipped,
		"posts":            sum.Posts,
		"groups":           sum.Groups,
		"demo_email":       seed.DemoEmail,
	})
	return nil
}
