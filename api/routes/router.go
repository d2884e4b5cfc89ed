package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/cellarbook-backend/api/controllers"
	authcontrollers "github.com/angelmondragon/cellarbook-backend/api/controllers/auth"
	cellarcontrollers "github.com/angelmondragon/cellarbook-backend/api/controllers/cellar"
	friendcontrollers "github.com/angelmondragon/cellarbook-backend/api/controllers/friends"
	profilecontrollers "github.com/angelmondragon/cellarbook-backend/api/controllers/profile"
	winecontrollers "github.com/angelmondragon/cellarbook-backend/api/controllers/wines"
	"github.com/angelmondragon/cellarbook-backend/api/middleware"
	"github.com/angelmondragon/cellarbook-backend/internal/auth"
	"github.com/angelmondragon/cellarbook-backend/internal/consumed"
	"github.com/angelmondragon/cellarbook-backend/internal/friends"
	"github.com/angelmondragon/cellarbook-backend/internal/inventory"
	"github.com/angelmondragon/cellarbook-backend/internal/stats"
	"github.com/angelmondragon/cellarbook-backend/internal/wines"
	"github.com/angelmondragon/cellarbook-backend/internal/wishlist"
	"github.com/angelmondragon/cellarbook-backend/pkg/auth/session"
	"github.com/angelmondragon/cellarbook-backend/pkg/config"
	"github.com/angelmondragon/cellarbook-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/cellarbook-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, userID uuid.UUID, accessID string) error
}

// cacheStore is the redis surface the HTTP layer needs: idempotency records,
// auth throttling counters and a readiness ping.
type cacheStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	Ping(ctx context.Context) error
}

// Deps carries everything the router hands to controllers. Storage is
// optional and only takes part in readiness when set.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Cache    cacheStore
	Storage  controllers.Pinger
	Sessions sessionManager

	Auth      auth.Service
	Passwords auth.PasswordService
	Wines     wines.Service
	Inventory inventory.Service
	Wishlist  wishlist.Service
	Consumed  consumed.Service
	Friends   friends.Service
	Stats     stats.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.BaseURL),
	)

	ready := map[string]controllers.Pinger{"postgres": d.DB, "redis": d.Cache}
	if d.Storage != nil {
		ready["gcs"] = d.Storage
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.SignupPolicy(cfg.AuthRateLimit), d.Cache, logg)).
				Post("/signup", authcontrollers.Signup(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), d.Cache, logg)).
				Post("/login", authcontrollers.Login(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.ForgotPolicy(cfg.AuthRateLimit), d.Cache, logg)).
				Post("/forgot-password", authcontrollers.ForgotPassword(d.Passwords, logg))
			r.Post("/reset-password", authcontrollers.ResetPassword(d.Passwords, logg))
			r.Post("/refresh", authcontrollers.Refresh(d.Sessions, cfg.JWT, logg))
			r.Post("/logout", authcontrollers.Logout(d.Sessions, cfg.JWT, logg))
		})

		r.Get("/invites/{code}", friendcontrollers.ResolveInvite(d.Friends, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.Idempotency(d.Cache, cfg.FeatureFlags.IdempotencyTTL, logg))

			r.Route("/wines", func(r chi.Router) {
				r.Get("/", winecontrollers.List(d.Wines, logg))
				r.Get("/search", winecontrollers.Search(d.Wines, logg))
				r.Post("/scan", winecontrollers.Scan(d.Wines, logg))
				r.Get("/{wineId}", winecontrollers.Get(d.Wines, logg))
				r.Patch("/{wineId}", winecontrollers.Update(d.Wines, logg))
				r.Delete("/{wineId}", winecontrollers.Delete(d.Wines, logg))
				r.Post("/{wineId}/scan", winecontrollers.MergeScan(d.Wines, logg))
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/", cellarcontrollers.ListInventory(d.Inventory, logg))
				r.Post("/", cellarcontrollers.AddInventory(d.Inventory, logg))
				r.Patch("/{entryId}", cellarcontrollers.UpdateInventory(d.Inventory, logg))
				r.Delete("/{entryId}", cellarcontrollers.DeleteInventory(d.Inventory, logg))
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", cellarcontrollers.ListWishlist(d.Wishlist, logg))
				r.Post("/", cellarcontrollers.AddWishlist(d.Wishlist, logg))
				r.Delete("/{entryId}", cellarcontrollers.DeleteWishlist(d.Wishlist, logg))
				r.Post("/{entryId}/move", cellarcontrollers.MoveWishlist(d.Wishlist, logg))
			})

			r.Route("/consumed", func(r chi.Router) {
				r.Get("/", cellarcontrollers.ListConsumed(d.Consumed, logg))
				r.Post("/", cellarcontrollers.RecordConsumed(d.Consumed, logg))
				r.Patch("/{recordId}", cellarcontrollers.RateConsumed(d.Consumed, logg))
				r.Delete("/{recordId}", cellarcontrollers.DeleteConsumed(d.Consumed, logg))
			})

			r.Route("/friends", func(r chi.Router) {
				r.Get("/", friendcontrollers.List(d.Friends, logg))
				r.Post("/", friendcontrollers.Request(d.Friends, logg))
				r.Post("/share", friendcontrollers.Share(d.Friends, logg))
				r.Delete("/share", friendcontrollers.Unshare(d.Friends, logg))
				r.Get("/invite", friendcontrollers.ActiveInvite(d.Friends, logg))
				r.Post("/invite", friendcontrollers.CreateInvite(d.Friends, logg))
				r.Post("/invite/{code}/redeem", friendcontrollers.RedeemInvite(d.Friends, logg))
				r.Get("/recommendations", friendcontrollers.ListRecommendations(d.Friends, logg))
				r.Post("/recommendations", friendcontrollers.Recommend(d.Friends, logg))
				r.Post("/recommendations/{recId}/read", friendcontrollers.MarkRecommendationRead(d.Friends, logg))
				r.Patch("/{friendshipId}", friendcontrollers.Respond(d.Friends, logg))
				r.Delete("/{friendshipId}", friendcontrollers.Unfriend(d.Friends, logg))
				r.Get("/{userId}/cellar", friendcontrollers.FriendCellar(d.Friends, logg))
			})

			r.Get("/profile/stats", profilecontrollers.Stats(d.Stats, logg))
		})
	})

	return r
}
