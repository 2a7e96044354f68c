package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/config"
	adminsvc "github.com/encontrocomfe/backend/internal/services/admin"
	analyticsvc "github.com/encontrocomfe/backend/internal/services/analytics"
	authsvc "github.com/encontrocomfe/backend/internal/services/auth"
	chatsvc "github.com/encontrocomfe/backend/internal/services/chat"
	devsvc "github.com/encontrocomfe/backend/internal/services/devotional"
	entsvc "github.com/encontrocomfe/backend/internal/services/entitlements"
	feedsvc "github.com/encontrocomfe/backend/internal/services/feed"
	geosvc "github.com/encontrocomfe/backend/internal/services/geo"
	likessvc "github.com/encontrocomfe/backend/internal/services/likes"
	matchessvc "github.com/encontrocomfe/backend/internal/services/matches"
	mediasvc "github.com/encontrocomfe/backend/internal/services/media"
	paymentsvc "github.com/encontrocomfe/backend/internal/services/payments"
	profilesvc "github.com/encontrocomfe/backend/internal/services/profiles"
	pushsvc "github.com/encontrocomfe/backend/internal/services/push"
	ratesvc "github.com/encontrocomfe/backend/internal/services/rate"
	swipesvc "github.com/encontrocomfe/backend/internal/services/swipes"
	"github.com/encontrocomfe/backend/internal/transport/http/handlers"
	"github.com/encontrocomfe/backend/internal/transport/ws"
)

type Dependencies struct {
	AdminService       *adminsvc.Service
	AnalyticsService   *analyticsvc.Service
	AuthService        *authsvc.Service
	ChatService        *chatsvc.Service
	DevotionalService  *devsvc.Service
	EntitlementService *entsvc.Service
	FeedService        *feedsvc.Service
	GeoService         *geosvc.Service
	LikeService        *likessvc.Service
	MatchService       *matchessvc.Service
	MediaService       *mediasvc.Service
	MessageLimiter     *ratesvc.Limiter
	PaymentService     *paymentsvc.Service
	ProfileService     *profilesvc.Service
	PushService        *pushsvc.Service
	SwipeService       *swipesvc.Service
	WSHub              *ws.Hub
	JWTManager         *authsvc.JWTManager
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService, deps.GeoService)
	feedHandler := handlers.NewFeedHandler(deps.FeedService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	likesHandler := handlers.NewLikesHandler(deps.LikeService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	chatHandler := handlers.NewChatHandler(deps.ChatService, deps.MessageLimiter)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	entitlementsHandler := handlers.NewEntitlementsHandler(deps.EntitlementService)
	checkoutHandler := handlers.NewCheckoutHandler(deps.PaymentService, deps.Config.Payments.WebhookSecret)
	devotionalHandler := handlers.NewDevotionalHandler(deps.DevotionalService)
	pushHandler := handlers.NewPushHandler(deps.PushService)
	eventsHandler := handlers.NewEventsHandler(deps.AnalyticsService)
	adminHandler := handlers.NewAdminHandler(deps.AdminService, deps.PushService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	adminMW := RequireRole("admin")

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.With(authMW).Post("/logout", authHandler.Logout)
			r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
		})

		r.Get("/cities", profileHandler.Cities)
		r.Get("/devotional/today", devotionalHandler.Today)
		r.Get("/plans", entitlementsHandler.Plans)

		r.Route("/me", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Update)
			r.Post("/location", profileHandler.UpdateLocation)
			r.Get("/filters", profileHandler.GetFilters)
			r.Put("/filters", profileHandler.SaveFilters)
			r.Put("/read-receipts", profileHandler.SetReadReceipts)
			r.Post("/photos", mediaHandler.UploadPhoto)
			r.Get("/photos", mediaHandler.ListPhotos)
			r.Delete("/photos/{photoID}", mediaHandler.DeletePhoto)
			r.Get("/entitlements", entitlementsHandler.Get)
		})

		r.With(authMW).Get("/feed", feedHandler.Get)
		r.With(authMW).Post("/swipes", swipeHandler.Swipe)
		r.With(authMW).Get("/swipes/quota", swipeHandler.Quota)
		r.With(authMW).Get("/likes/incoming", likesHandler.Incoming)

		r.Route("/matches", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/", matchesHandler.List)
			r.Get("/{matchID}", matchesHandler.Get)
			r.Get("/{matchID}/messages", chatHandler.List)
			r.Post("/{matchID}/messages", chatHandler.Send)
			r.Post("/{matchID}/read", chatHandler.MarkRead)
			r.Post("/{matchID}/call", chatHandler.StartCall)
			r.Post("/{matchID}/media", mediaHandler.UploadChatMedia)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/{userID}/unmatch", matchesHandler.Unmatch)
			r.Post("/{userID}/block", matchesHandler.Block)
			r.Post("/{userID}/report", matchesHandler.Report)
		})

		r.With(authMW).Post("/messages/direct", chatHandler.SendDirect)

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/plans", checkoutHandler.Plans)
			r.With(authMW).Post("/intents", checkoutHandler.CreateIntent)
			r.With(authMW).Get("/intents/{purchaseID}", checkoutHandler.Status)
			r.Post("/webhook", checkoutHandler.Webhook)
			r.With(authMW, adminMW).Post("/intents/{purchaseID}/dev-confirm", checkoutHandler.DevConfirm)
		})

		r.Route("/push", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/token", pushHandler.Register)
			r.Delete("/token", pushHandler.Unregister)
		})

		r.With(authMW).Post("/events/batch", eventsHandler.Batch)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMW, adminMW)
			r.Get("/reports", adminHandler.ListReports)
			r.Post("/reports/{reportID}/resolve", adminHandler.ResolveReport)
			r.Post("/users/{userID}/suspend", adminHandler.SuspendUser)
			r.Post("/users/{userID}/unsuspend", adminHandler.UnsuspendUser)
			r.Get("/audit", adminHandler.AuditTrail)
			r.Post("/campaigns/audience", adminHandler.CampaignAudience)
			r.Post("/campaigns", adminHandler.SendCampaign)
		})
	})

	if deps.WSHub != nil && deps.JWTManager != nil {
		r.Get("/ws", ws.ServeWS(deps.WSHub, deps.JWTManager, deps.Logger))
	}
}
