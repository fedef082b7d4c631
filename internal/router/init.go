package router

import (
	"github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/internal/container"
	repo "github.com/zuetani/earth-tribe/internal/domain/repository"
	esinfra "github.com/zuetani/earth-tribe/internal/infrastructure/elasticsearch"
	gcsinfra "github.com/zuetani/earth-tribe/internal/infrastructure/gcs"
	pginfra "github.com/zuetani/earth-tribe/internal/infrastructure/postgres"
	redisinfra "github.com/zuetani/earth-tribe/internal/infrastructure/redis"
	handlers "github.com/zuetani/earth-tribe/internal/interface/http"
	"github.com/zuetani/earth-tribe/internal/interface/middleware"
	"github.com/zuetani/earth-tribe/internal/router/modules"
	"github.com/zuetani/earth-tribe/pkg/helpers"
)

type Services struct {
	Session *application.SessionService
	Content *application.ContentService
	Storage *application.StorageService // nil without a bucket
}

// BuildServices wires repositories and services from the container singletons.
func BuildServices() Services {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	posts := pginfra.NewPostRepository(pool)
	groups := pginfra.NewGroupRepository(pool)
	sessions := redisinfra.NewSessionStore(container.GetRedis(), cfg.SessionTTL)

	sessionSvc := application.NewSessionService(
		pginfra.NewIdentityRepository(pool),
		users,
		sessions,
		container.GetJWT(),
		logger,
	)
	contentSvc := application.NewContentService(posts, users, groups, logger)

	if idx := searchIndex(); idx != nil {
		sessionSvc.Index = idx
		sessionSvc.IndexFailed = contentSvc.MarkIndexStale
		contentSvc.Index = idx
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		sessionSvc.Jobs = pub
	}

	var storageSvc *application.StorageService
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		storageSvc = application.NewStorageService(gcsinfra.NewObjectStore(gcs, cfg.GCSBucket), logger)
		storageSvc.AllowedTypes = cfg.AllowedUploadTypes()
		storageSvc.MaxSizeMB = cfg.UploadMaxSizeMB
	}

	return Services{Session: sessionSvc, Content: contentSvc, Storage: storageSvc}
}

func searchIndex() repo.SearchIndex {
	cfg := container.GetConfig()
	es := container.GetES()
	if !cfg.UseElasticsearch() || es == nil {
		return nil
	}
	return esinfra.NewIndex(es, cfg.ESPostsIndex, cfg.ESUsersIndex)
}

// InitModules wires every feature module into the registry. Call once at startup.
func InitModules(r *Registry, svc Services) {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	r.Use(middleware.Session(svc.Session))

	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(svc.Session, logger, helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure)),
	))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(svc.Content)))
	r.Add(modules.NewPostModule(handlers.NewPostHandler(svc.Content), handlers.NewGroupHandler(svc.Content)))

	if svc.Storage != nil {
		r.Add(modules.NewStorageModule(handlers.NewUploadHandler(svc.Storage, logger, svc.Storage.AllowedTypes, svc.Storage.MaxSizeMB)))
	} else {
		logger.Warn("GCS_BUCKET not set; upload routes disabled")
	}

	if cfg.MetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
