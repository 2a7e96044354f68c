package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/config"
	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	fcminfra "github.com/encontrocomfe/backend/internal/infra/fcm"
	"github.com/encontrocomfe/backend/internal/infra/httpclient"
	s3infra "github.com/encontrocomfe/backend/internal/infra/s3"
	"github.com/encontrocomfe/backend/internal/jobs/cleanup"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	redrepo "github.com/encontrocomfe/backend/internal/repo/redis"
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
	"github.com/encontrocomfe/backend/internal/transport/ws"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	hub        *ws.Hub
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	devotionalRepo := redrepo.NewDevotionalRepo(redisClient)

	userRepo := pgrepo.NewUserRepo(pool)
	profileRepo := pgrepo.NewProfileRepo(pool)
	photoRepo := pgrepo.NewPhotoRepo(pool)
	feedRepo := pgrepo.NewFeedRepo(pool)
	swipeRepo := pgrepo.NewSwipeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	blockRepo := pgrepo.NewBlockRepo(pool)
	reportRepo := pgrepo.NewReportRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)
	quotaRepo := pgrepo.NewQuotaRepo(pool)
	subscriptionRepo := pgrepo.NewSubscriptionRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	eventRepo := pgrepo.NewEventRepo(pool)
	pushRepo := pgrepo.NewPushRepo(pool)
	auditRepo := pgrepo.NewAuditRepo(pool)

	plans := plansFromConfig(cfg.Payments.Plans)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, cfg.Auth.RefreshTTL, cfg.Auth.BcryptCost)

	entitlementService := entsvc.NewService(subscriptionRepo, plans)

	geoService := geosvc.NewService(cfg.Remote.Cities, profileRepo)

	profileService := profilesvc.NewService(profilesvc.Dependencies{
		Store:  profileRepo,
		Gate:   entitlementService,
		Cities: profileCities(cfg.Remote.Cities),
	})

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	mediaService := mediasvc.NewService(mediasvc.Dependencies{
		Photos:   photoRepo,
		Profiles: profileRepo,
		Matches:  matchRepo,
		Storage:  mediaStorage,
	})

	feedService := feedsvc.NewService(feedsvc.Dependencies{
		Repo:        feedRepo,
		Profiles:    profileRepo,
		Tiers:       subscriptionRepo,
		PhotoSigner: mediaStorage,
	}, feedsvc.Config{
		DefaultAgeMin:   cfg.Remote.Filters.AgeMin,
		DefaultAgeMax:   cfg.Remote.Filters.AgeMax,
		DefaultRadiusKM: cfg.Remote.Filters.RadiusDefaultKM,
		MaxRadiusKM:     cfg.Remote.Filters.RadiusMaxKM,
	})

	swipeLimiter := ratesvc.NewLimiter(rateRepo, "swipes",
		cfg.Remote.Limits.SwipesPer10Sec*6, cfg.Remote.Limits.SwipesPer10Sec)
	messageLimiter := ratesvc.NewLimiter(rateRepo, "messages",
		cfg.Remote.Limits.MessagesPerMinute, 0)

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:        pool,
		SwipeStore:  swipeRepo,
		MatchStore:  matchRepo,
		QuotaStore:  quotaRepo,
		Tiers:       subscriptionRepo,
		Targets:     userRepo,
		Profiles:    profileRepo,
		RateLimiter: swipeLimiter,
	}, swipesvc.Config{
		DefaultTimezone: cfg.Remote.Timezone,
	})

	likeService := likessvc.NewService(likessvc.Dependencies{
		Swipes:   swipeRepo,
		Profiles: profileRepo,
		Gate:     entitlementService,
	})

	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Pool:            pool,
		MatchStore:      matchRepo,
		BlockStore:      blockRepo,
		ReportStore:     reportRepo,
		ReportRateStore: rateRepo,
	})

	chatService := chatsvc.NewService(chatsvc.Dependencies{
		Pool:     pool,
		Messages: messageRepo,
		Matches:  matchRepo,
		Profiles: profileRepo,
		Users:    userRepo,
		Blocks:   blockRepo,
		Gate:     entitlementService,
	})

	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Pool:          pool,
		Purchases:     purchaseRepo,
		Subscriptions: subscriptionRepo,
	}, paymentsvc.Config{
		Provider:    cfg.Payments.Provider,
		PixKey:      cfg.Payments.PixKey,
		PixMerchant: cfg.Payments.PixMerchant,
		PixCity:     cfg.Payments.PixCity,
		QRBaseURL:   cfg.Payments.QRBaseURL,
		IntentTTL:   cfg.Payments.IntentTTL,
		DevConfirm:  cfg.Payments.DevConfirm,
		Plans:       plans,
	})

	analyticsService := analyticsvc.NewService(eventRepo, analyticsvc.Config{
		MaxBatchSize: 100,
	})

	devotionalService := devsvc.NewService(devsvc.Dependencies{
		Cache:  devotionalRepo,
		Client: httpclient.New(cfg.Devotional.Timeout),
		Logger: log,
	}, devsvc.Config{
		BaseURL:      cfg.Devotional.BaseURL,
		TranslateURL: cfg.Devotional.TranslateURL,
		CacheTTL:     cfg.Devotional.CacheTTL,
	})

	pushService := buildPushService(ctx, cfg, log, pushRepo)

	adminService := adminsvc.NewService(adminsvc.Dependencies{
		Pool:    pool,
		Reports: reportRepo,
		Users:   userRepo,
		Matches: matchRepo,
		Audit:   auditRepo,
		Logger:  log,
	})

	hub := ws.NewHub(log)
	hub.SetAuthorizer(func(userID, matchID int64) bool {
		match, err := matchRepo.GetByID(context.Background(), matchID)
		if err != nil {
			return false
		}
		return match.HasParticipant(userID)
	})
	go hub.Run()

	hubNotifier := ws.NewHubNotifier(hub, log)
	chatService.SetNotifier(fanoutNotifier{hub: hubNotifier, push: pushService})
	swipeService.SetMatchNotifier(matchFanout{hub: hubNotifier, push: pushService})

	cleanupJob := cleanup.New(purchaseRepo, subscriptionRepo, eventRepo, cfg.Jobs.EventRetention, log)
	go cleanupJob.Start(ctx, cfg.Jobs.CleanupInterval)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AdminService:       adminService,
		AnalyticsService:   analyticsService,
		AuthService:        authService,
		ChatService:        chatService,
		DevotionalService:  devotionalService,
		EntitlementService: entitlementService,
		FeedService:        feedService,
		GeoService:         geoService,
		LikeService:        likeService,
		MatchService:       matchesService,
		MediaService:       mediaService,
		MessageLimiter:     messageLimiter,
		PaymentService:     paymentService,
		ProfileService:     profileService,
		PushService:        pushService,
		SwipeService:       swipeService,
		WSHub:              hub,
		JWTManager:         jwtManager,
		Logger:             log,
		Config:             cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		hub:        hub,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// buildPushService runs in dry-run mode when no FCM credentials are
// configured or the client fails to initialize, so local stacks work
// without Firebase.
func buildPushService(ctx context.Context, cfg config.Config, log *zap.Logger, tokens pushsvc.TokenStore) *pushsvc.Service {
	deps := pushsvc.Dependencies{
		Tokens: tokens,
		Logger: log,
	}
	pushCfg := pushsvc.Config{}

	if cfg.FCM.CredentialsFile == "" {
		pushCfg.DryRun = true
		return pushsvc.NewService(deps, pushCfg)
	}

	client, err := fcminfra.NewClient(ctx, fcminfra.Config{
		CredentialsFile: cfg.FCM.CredentialsFile,
		ProjectID:       cfg.FCM.ProjectID,
	})
	if err != nil {
		log.Warn("fcm init failed, push runs in dry-run mode", zap.Error(err))
		pushCfg.DryRun = true
		return pushsvc.NewService(deps, pushCfg)
	}

	deps.Messenger = client
	return pushsvc.NewService(deps, pushCfg)
}

func plansFromConfig(plans []config.PlanConfig) []model.Plan {
	out := make([]model.Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, model.Plan{
			ID:         p.ID,
			Tier:       enums.Tier(p.Tier),
			Name:       p.Name,
			PriceCents: p.PriceCents,
			PeriodDays: p.PeriodDays,
			Highlights: p.Highlights,
		})
	}
	return out
}

func profileCities(cities []config.CityConfig) []profilesvc.City {
	out := make([]profilesvc.City, 0, len(cities))
	for _, c := range cities {
		out = append(out, profilesvc.City{ID: c.ID, Name: c.Name, State: c.State})
	}
	return out
}

// fanoutNotifier delivers chat events over the websocket hub and, in
// parallel, as push notifications for offline recipients.
type fanoutNotifier struct {
	hub  *ws.HubNotifier
	push *pushsvc.Service
}

func (n fanoutNotifier) NotifyNewMessage(msg model.Message, recipients []int64) {
	n.hub.NotifyNewMessage(msg, recipients)
	if n.push != nil {
		n.push.NotifyNewMessage(msg, recipients)
	}
}

func (n fanoutNotifier) NotifyMessagesRead(matchID, readerUserID int64, messageIDs []string, recipients []int64) {
	n.hub.NotifyMessagesRead(matchID, readerUserID, messageIDs, recipients)
}

type matchFanout struct {
	hub  *ws.HubNotifier
	push *pushsvc.Service
}

func (n matchFanout) NotifyMatch(match model.Match) {
	n.hub.NotifyMatch(match)
	if n.push != nil {
		n.push.NotifyMatch(context.Background(), match)
	}
}
