package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/middleware"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/services"
	"gasdash-backend/internal/workspace"
	"gasdash-backend/pkg/utils"
)

// RouterConfig carries what the HTTP surface needs
type RouterConfig struct {
	Registry       *workspace.Registry
	Provider       identity.Provider
	JWTSecret      string
	AllowedOrigins []string
	// Geocoder and GeocodeCache are optional
	Geocoder     services.Geocoder
	GeocodeCache *services.GeocodeCache
	// WebSocket is mounted at /ws when set
	WebSocket http.HandlerFunc
}

func pickUsers(ws *workspace.Workspace) collection[models.User]         { return ws.Users }
func pickDrivers(ws *workspace.Workspace) collection[models.Driver]     { return ws.Drivers }
func pickCustomers(ws *workspace.Workspace) collection[models.Customer] { return ws.Customers }
func pickDeliveries(ws *workspace.Workspace) collection[models.Delivery] {
	return ws.Deliveries
}
func pickNotifications(ws *workspace.Workspace) collection[models.Notification] {
	return ws.Notifications
}

// NewRouter wires every dashboard route
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "ok",
			"workspaces": cfg.Registry.Len(),
		})
	})

	if cfg.WebSocket != nil {
		r.Get("/ws", cfg.WebSocket)
	}

	staff := middleware.RequireRole(models.RoleAdmin, models.RoleManager)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/login", Login(cfg.Registry, cfg.JWTSecret))
		r.Post("/auth/register", Register(cfg.Registry, cfg.JWTSecret))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret, cfg.Registry))

			r.Post("/auth/logout", Logout(cfg.Registry))
			r.Get("/auth/status", AuthStatus())
			r.Post("/auth/refresh", RefreshProfile())

			r.Get("/settings/theme", GetTheme())
			r.Patch("/settings/theme", UpdateTheme())
			r.Post("/me/fcm-token", RegisterDevice())

			// Users (admin, manager)
			r.Route("/users", func(r chi.Router) {
				r.Use(staff)
				mountCollection(r, "users", pickUsers, nil)
				r.Patch("/{id}/status", UpdateUserStatus())
				r.With(adminOnly).Patch("/{id}/role", UpdateUserRole())
				r.With(adminOnly).Post("/{id}/revoke", RevokeUser(cfg.Provider))
			})

			// Drivers (admin, manager)
			r.Route("/drivers", func(r chi.Router) {
				r.Use(staff)
				r.Get("/available", AvailableDrivers())
				mountCollection(r, "drivers", pickDrivers, nil)
				r.Patch("/{id}/status", UpdateDriverStatus())
				r.Patch("/{id}/location", UpdateDriverLocation())
				r.Get("/{id}/profile", DriverProfile())
			})

			// Customers (admin, manager)
			r.Route("/customers", func(r chi.Router) {
				r.Use(staff)
				mountCollection(r, "customers", pickCustomers, ListCustomers())
			})

			// Deliveries (scoped per role)
			r.Route("/deliveries", func(r chi.Router) {
				r.Get("/", ListResource(pickDeliveries))
				r.Post("/refresh", RefreshResource(pickDeliveries))
				r.Get("/view", RenderView("deliveries"))
				r.Post("/view", RenderView("deliveries"))
				r.Get("/{id}", GetResource(pickDeliveries))
				r.Patch("/{id}/status", UpdateDeliveryStatus())
				r.With(staff).Post("/", CreateResource(pickDeliveries))
				r.With(staff).Patch("/{id}", PatchResource(pickDeliveries))
				r.With(staff).Delete("/{id}", DeleteResource(pickDeliveries))
				r.With(staff).Patch("/{id}/payment", UpdatePaymentStatus())
				r.With(staff).Patch("/{id}/driver", AssignDriver())
			})

			// Notifications (own inbox)
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", ListNotifications())
				r.Post("/", SendNotification())
				r.Post("/refresh", RefreshResource(pickNotifications))
				r.Post("/read-all", MarkAllNotificationsRead())
				r.Post("/{id}/read", MarkNotificationRead())
			})

			// Geocoding (admin, manager)
			r.Route("/geocoding", func(r chi.Router) {
				r.Use(staff)
				r.Post("/forward", Geocode(cfg.Geocoder))
				r.Post("/forward/batch", BatchGeocode(cfg.Geocoder))
				r.Get("/stats", GeocodeCacheStats(cfg.GeocodeCache))
			})

			// Analytics and reports (admin, manager)
			r.With(staff).Get("/analytics", GetAnalytics())
			r.Route("/reports", func(r chi.Router) {
				r.Use(staff)
				r.Get("/", ListReports())
				r.Get("/export", ExportReports())
				r.Post("/{type}", GenerateReport())
			})
		})
	})

	return r
}

// mountCollection registers list, refresh, view and CRUD routes. list
// replaces the default cached-state listing when set.
func mountCollection[T any](r chi.Router, view string, pick func(*workspace.Workspace) collection[T], list http.HandlerFunc) {
	if list == nil {
		list = ListResource(pick)
	}
	r.Get("/", list)
	r.Post("/", CreateResource(pick))
	r.Post("/refresh", RefreshResource(pick))
	r.Get("/view", RenderView(view))
	r.Post("/view", RenderView(view))
	r.Get("/{id}", GetResource(pick))
	r.Patch("/{id}", PatchResource(pick))
	r.Delete("/{id}", DeleteResource(pick))
}
