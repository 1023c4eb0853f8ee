package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uistaff/invento-backend/api/controllers"
	"github.com/uistaff/invento-backend/api/middleware"
	"github.com/uistaff/invento-backend/internal/authn"
	"github.com/uistaff/invento-backend/internal/feed"
	"github.com/uistaff/invento-backend/internal/inventory"
	"github.com/uistaff/invento-backend/internal/notifications"
	"github.com/uistaff/invento-backend/internal/orders"
	"github.com/uistaff/invento-backend/internal/users"
	"github.com/uistaff/invento-backend/internal/vendors"
	"github.com/uistaff/invento-backend/pkg/config"
	dbpkg "github.com/uistaff/invento-backend/pkg/db"
	"github.com/uistaff/invento-backend/pkg/logger"
	pkgredis "github.com/uistaff/invento-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP dbpkg.Pinger,
	redisClient *pkgredis.Client,
	hub *feed.Hub,
	authnService authn.Service,
	inventoryService inventory.Service,
	notificationsService notifications.Service,
	ordersService orders.Service,
	vendorsService vendors.Service,
	usersService users.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/v1/auth/login", controllers.AuthLogin(authnService, logg))

	// EventSource cannot set headers; the stream endpoint validates
	// its own token and stays outside the auth middleware.
	r.Get("/api/v1/stream", controllers.StreamEvents(hub, cfg.JWT, redisClient, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, cfg.Service, redisClient, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/v1/auth/logout", controllers.AuthLogout(authnService, logg))

		r.Route("/v1/items", func(r chi.Router) {
			r.Get("/", controllers.ItemList(inventoryService, logg))
			r.Post("/", controllers.ItemCreate(inventoryService, logg))
			r.Get("/stats", controllers.InventoryStats(inventoryService, logg))
			r.Post("/consume", controllers.ItemConsume(inventoryService, logg))
			r.Post("/restock", controllers.ItemRestock(inventoryService, logg))
			r.Get("/{itemId}", controllers.ItemGet(inventoryService, logg))
			r.Patch("/{itemId}", controllers.ItemUpdate(inventoryService, logg))
			r.Delete("/{itemId}", controllers.ItemDelete(inventoryService, logg))
		})

		r.Get("/v1/usage", controllers.UsageList(inventoryService, logg))

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/", controllers.NotificationCreate(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Post("/", controllers.OrderCreate(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderGet(ordersService, logg))
			r.Post("/{orderId}/status", controllers.OrderUpdateStatus(ordersService, logg))
			r.Delete("/{orderId}", controllers.OrderDelete(ordersService, logg))
		})

		r.Route("/v1/vendors", func(r chi.Router) {
			r.Get("/", controllers.VendorList(vendorsService, logg))
			r.Post("/", controllers.VendorCreate(vendorsService, logg))
			r.Get("/{vendorId}", controllers.VendorGet(vendorsService, logg))
			r.Patch("/{vendorId}", controllers.VendorUpdate(vendorsService, logg))
			r.Delete("/{vendorId}", controllers.VendorDelete(vendorsService, logg))
			r.Get("/{vendorId}/items", controllers.VendorListItems(vendorsService, logg))
			r.Post("/{vendorId}/items", controllers.VendorLinkItem(vendorsService, logg))
		})
		r.Delete("/v1/vendor-items/{linkId}", controllers.VendorUnlinkItem(vendorsService, logg))

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))

			r.Patch("/usage/{usageId}", controllers.UsageCorrect(inventoryService, logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.UserList(usersService, logg))
				r.Post("/", controllers.UserCreate(usersService, logg))
				r.Get("/{userId}", controllers.UserGet(usersService, logg))
				r.Patch("/{userId}", controllers.UserUpdate(usersService, logg))
				r.Delete("/{userId}", controllers.UserDelete(usersService, logg))
			})
		})
	})

	return r
}
