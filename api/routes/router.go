package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrimandi/agrimandi-backend/api/controllers"
	"github.com/agrimandi/agrimandi-backend/api/middleware"
	authsvc "github.com/agrimandi/agrimandi-backend/internal/auth"
	bidsvc "github.com/agrimandi/agrimandi-backend/internal/bids"
	bookingsvc "github.com/agrimandi/agrimandi-backend/internal/bookings"
	listingsvc "github.com/agrimandi/agrimandi-backend/internal/listings"
	notificationsvc "github.com/agrimandi/agrimandi-backend/internal/notifications"
	purchasesvc "github.com/agrimandi/agrimandi-backend/internal/purchases"
	slotsvc "github.com/agrimandi/agrimandi-backend/internal/slots"
	usersvc "github.com/agrimandi/agrimandi-backend/internal/users"
	"github.com/agrimandi/agrimandi-backend/pkg/auth/session"
	"github.com/agrimandi/agrimandi-backend/pkg/config"
	"github.com/agrimandi/agrimandi-backend/pkg/db"
	"github.com/agrimandi/agrimandi-backend/pkg/enums"
	"github.com/agrimandi/agrimandi-backend/pkg/logger"
	pkgredis "github.com/agrimandi/agrimandi-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Auth          authsvc.Service
	Register      authsvc.RegisterService
	Users         usersvc.Service
	Listings      listingsvc.Service
	Bids          bidsvc.Service
	Purchases     purchasesvc.Service
	Notifications notificationsvc.Service
	Slots         slotsvc.Service
	Bookings      bookingsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", controllers.PaymentWebhook(svcs.Purchases, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, logg),
		).Post("/register", controllers.AuthRegister(svcs.Register, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.RateLimit(redisClient, int64(cfg.APIRateLimit.Limit), cfg.APIRateLimit.Window, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/auth/logout", controllers.AuthLogout(svcs.Auth, logg))
		r.Get("/users/me", controllers.UsersMe(svcs.Users, logg))

		r.Route("/listings", func(r chi.Router) {
			r.Get("/", controllers.ListListings(svcs.Listings, logg))
			r.Post("/", controllers.CreateListing(svcs.Listings, logg))
			r.Get("/{listingID}", controllers.GetListing(svcs.Listings, logg))
			r.Patch("/{listingID}", controllers.UpdateListing(svcs.Listings, logg))
			r.Delete("/{listingID}", controllers.DeactivateListing(svcs.Listings, logg))
			r.Get("/{listingID}/bids", controllers.ListBids(svcs.Bids, logg))
			r.Post("/{listingID}/bids", controllers.PlaceBid(svcs.Bids, logg))
		})

		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", controllers.ListPurchases(svcs.Purchases, logg))
			r.Post("/", controllers.CreatePurchase(svcs.Purchases, logg))
			r.Get("/{purchaseID}", controllers.GetPurchase(svcs.Purchases, logg))
		})
		r.Post("/bids/{bidID}/payment", controllers.PayForBid(svcs.Purchases, logg))

		r.Route("/storage-slots", func(r chi.Router) {
			r.Get("/", controllers.ListStorageSlots(svcs.Slots, logg))
			r.Get("/{slotID}", controllers.GetStorageSlot(svcs.Slots, logg))
			r.Post("/{slotID}/bookings", controllers.BookStorageSlot(svcs.Bookings, logg))
		})
		r.Route("/cultivation-slots", func(r chi.Router) {
			r.Get("/", controllers.ListCultivationSlots(svcs.Slots, logg))
			r.Get("/{slotID}", controllers.GetCultivationSlot(svcs.Slots, logg))
			r.Post("/{slotID}/bookings", controllers.BookCultivationSlot(svcs.Bookings, logg))
		})
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/storage", controllers.ListStorageBookings(svcs.Bookings, logg))
			r.Get("/storage/{bookingID}", controllers.GetStorageBooking(svcs.Bookings, logg))
			r.Get("/cultivation", controllers.ListCultivationBookings(svcs.Bookings, logg))
			r.Get("/cultivation/{bookingID}", controllers.GetCultivationBooking(svcs.Bookings, logg))
		})

		r.Route("/schemes", func(r chi.Router) {
			r.Get("/", controllers.ListSchemes(svcs.Slots, logg))
			r.Get("/{schemeID}", controllers.GetScheme(svcs.Slots, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminListUsers(svcs.Users, logg))
				r.Post("/{userID}/approval", controllers.AdminSetApproval(svcs.Users, logg))
				r.Post("/{userID}/active", controllers.AdminSetActive(svcs.Users, logg))
			})

			r.Post("/storage-slots", controllers.CreateStorageSlot(svcs.Slots, logg))
			r.Patch("/storage-slots/{slotID}", controllers.UpdateStorageSlot(svcs.Slots, logg))
			r.Post("/cultivation-slots", controllers.CreateCultivationSlot(svcs.Slots, logg))
			r.Patch("/cultivation-slots/{slotID}", controllers.UpdateCultivationSlot(svcs.Slots, logg))
			r.Post("/schemes", controllers.CreateScheme(svcs.Slots, logg))
			r.Patch("/schemes/{schemeID}", controllers.UpdateScheme(svcs.Slots, logg))

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/storage/{bookingID}/decision", controllers.DecideStorageBooking(svcs.Bookings, logg))
				r.Post("/storage/{bookingID}/complete", controllers.CompleteStorageBooking(svcs.Bookings, logg))
				r.Post("/cultivation/{bookingID}/decision", controllers.DecideCultivationBooking(svcs.Bookings, logg))
				r.Post("/cultivation/{bookingID}/complete", controllers.CompleteCultivationBooking(svcs.Bookings, logg))
			})
		})
	})

	return r
}
