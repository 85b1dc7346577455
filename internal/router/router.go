package router

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"pro-client-access/internal/adapters/cache/rediscache"
	mem "pro-client-access/internal/adapters/storage/memory"
	pg "pro-client-access/internal/adapters/storage/postgres"
	"pro-client-access/internal/domain/access"
	"pro-client-access/internal/domain/catalog"
	"pro-client-access/internal/domain/grants"
	"pro-client-access/internal/domain/invitations"
	"pro-client-access/internal/domain/relationships"
	"pro-client-access/internal/middleware"
	"pro-client-access/internal/platform/logger"
	"pro-client-access/internal/ports/auth"
	"pro-client-access/internal/queue"
	"pro-client-access/internal/storage"

	_ "pro-client-access/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcionales: cache de decisiones y eventos. nil => sin esa pieza.
	Redis  *redis.Client
	Events queue.Publisher

	Log logger.Logger

	InviteTTL time.Duration
	CacheTTL  time.Duration
}

// Services expone los servicios que el caller necesita fuera del router
// (hoy: el janitor de invitaciones en main).
type Services struct {
	Invitations *invitations.Service
}

func NewRouter(opts Options) (http.Handler, Services) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	var (
		catalogRepo catalog.Repository
		relsRepo    relationships.Repository
		invRepo     invitations.Repository
		grantsRepo  grants.Repository
		txm         storage.TxManager
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			} else {
				log.Warn("postgres open failed, falling back to memory", map[string]any{"err": err.Error()})
			}
		}
	}

	var (
		accessRels access.RelationshipReader
		grantsRels grants.RelationshipReader
	)

	if db != nil {
		pgRels := pg.NewRelationshipsRepo(db)
		catalogRepo = pg.NewCatalogRepo(db)
		relsRepo = pgRels
		invRepo = pg.NewInvitationsRepo(db)
		grantsRepo = pg.NewGrantsRepo(db)
		txm = pg.NewTxManager(db)
		accessRels = pgRels
		grantsRels = pgRels
	} else {
		memRels := mem.NewRelationshipsRepo()
		catalogRepo = mem.NewCatalogRepo()
		relsRepo = memRels
		invRepo = mem.NewInvitationsRepo()
		grantsRepo = mem.NewGrantsRepo(memRels)
		txm = mem.NewTxManager()
		accessRels = memRels
		grantsRels = memRels

		// el catálogo built-in vive en la DB; in-memory se siembra al boot
		if err := catalog.Seed(context.Background(), catalogRepo); err != nil {
			log.Error("catalog seed failed", map[string]any{"err": err.Error()})
		}
	}

	// Cache de decisiones (opcional)
	var (
		decisions   access.DecisionCache
		invalidator *rediscache.Cache
	)
	if opts.Redis != nil {
		invalidator = rediscache.New(opts.Redis, opts.CacheTTL)
		decisions = invalidator
	}

	// Services por módulo
	catalogSvc := catalog.NewService(catalogRepo)
	grantsSvc := grants.NewService(grantsRepo, grantsRels, catalogSvc, txm, grants.Options{
		Events: opts.Events,
		Cache:  accessCacheOrNil(invalidator),
		Log:    log,
	})
	relsSvc := relationships.NewService(relsRepo, grantsSvc, txm, relationships.Options{
		Events: opts.Events,
		Cache:  relCacheOrNil(invalidator),
		Log:    log,
	})
	invSvc := invitations.NewService(invRepo, relsRepo, grantsSvc, catalogSvc, txm, invitations.Options{
		Events: opts.Events,
		Cache:  invCacheOrNil(invalidator),
		Log:    log,
		TTL:    opts.InviteTTL,
	})
	accessSvc := access.NewService(accessRels, grantsRepo, catalogSvc, grantsSvc, access.Options{
		Cache: decisions,
		Log:   log,
	})

	// Rutas por módulo
	catalog.RegisterRoutes(r, catalogSvc)
	relationships.RegisterRoutes(r, relsSvc)
	invitations.RegisterRoutes(r, invSvc)
	grants.RegisterRoutes(r, grantsSvc)
	access.RegisterRoutes(r, accessSvc)

	return r, Services{Invitations: invSvc}
}

// Los helpers evitan meter un puntero nil adentro de una interfaz no-nil.
func accessCacheOrNil(c *rediscache.Cache) grants.AccessCache {
	if c == nil {
		return nil
	}
	return c
}

func relCacheOrNil(c *rediscache.Cache) relationships.AccessCache {
	if c == nil {
		return nil
	}
	return c
}

func invCacheOrNil(c *rediscache.Cache) invitations.AccessCache {
	if c == nil {
		return nil
	}
	return c
}
