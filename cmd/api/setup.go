package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	auctionadapter "github.com/zonixt/eauction/internal/auction/adapter"
	auctionapp "github.com/zonixt/eauction/internal/auction/app"
	auctionport "github.com/zonixt/eauction/internal/auction/port"
	"github.com/zonixt/eauction/internal/awsenv"
	"github.com/zonixt/eauction/internal/config"
	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/dynamo"
	"github.com/zonixt/eauction/internal/postgres"
	"github.com/zonixt/eauction/internal/redis"
	"github.com/zonixt/eauction/internal/server"
	smsadapter "github.com/zonixt/eauction/internal/sms/adapter"
	smsapp "github.com/zonixt/eauction/internal/sms/app"
	smsport "github.com/zonixt/eauction/internal/sms/port"
	"github.com/zonixt/eauction/internal/twofactor"
	"github.com/zonixt/eauction/internal/verification/adapter"
	"github.com/zonixt/eauction/internal/verification/app"
	"github.com/zonixt/eauction/internal/verification/port"
)

// gatewayKeys are the resolved 2Factor API keys.
type gatewayKeys struct {
	otp           domain.SecretString
	promotional   domain.SecretString
	transactional domain.SecretString
}

// setup is the API composition root. It creates infrastructure clients,
// adapters and services, and mounts every handler on the shared router.
func setup(ctx context.Context, deps server.SetupDeps) (func(), error) {
	cfg := deps.Config
	logger := deps.Logger
	clock := domain.RealClock{}

	methods, err := cfg.OTPChannels()
	if err != nil {
		return nil, fmt.Errorf("api setup: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Auction.Timezone)
	if err != nil {
		return nil, fmt.Errorf("api setup: auction timezone %q: %w", cfg.Auction.Timezone, err)
	}

	// 1. Relational store.
	pool, err := postgres.NewPool(ctx, postgres.Config{
		DSN:            cfg.Postgres.DSN,
		MaxConns:       cfg.Postgres.MaxConns,
		ConnectTimeout: cfg.Postgres.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("api setup: %w", err)
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("api setup: %w", err)
	}

	// 2. AWS clients, only when something needs them.
	awsCfg := awsenv.Config{
		Region:   cfg.AWS.Region,
		Endpoint: cfg.AWS.Endpoint,
		Timeout:  cfg.DynamoDB.Timeout,
	}
	var sdkCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if sdkCfg == nil {
			c, err := awsenv.Load(ctx, awsCfg)
			if err != nil {
				return aws.Config{}, err
			}
			sdkCfg = &c
		}
		return *sdkCfg, nil
	}

	keys, err := resolveKeys(ctx, cfg, loadAWS, awsCfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("api setup: %w", err)
	}

	// 3. OTP store.
	var store app.OTPStore
	switch cfg.OTP.Store {
	case config.StoreDynamoDB:
		dynamoClient, err := dynamo.NewClient(ctx, dynamo.Config{
			Endpoint: cfg.DynamoDB.Endpoint,
			Region:   cfg.AWS.Region,
			Timeout:  cfg.DynamoDB.Timeout,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("api setup: create dynamo client: %w", err)
		}
		store = adapter.NewDynamoOTPStore(dynamoClient.DB, cfg.DynamoDB.OTPTable, adapter.DefaultOTPRetention)
	default:
		store = adapter.NewPostgresOTPStore(pool)
	}

	// 4. Issuance rate limiting.
	var (
		limiter     app.RateLimiter
		redisClient *redis.Client
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(redis.Config{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			ReadTimeout:  cfg.Redis.Timeout,
			WriteTimeout: cfg.Redis.Timeout,
		})
		if err := redisClient.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "redis unreachable at startup",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		}
		limiter = adapter.NewRateLimiter(redisClient.RDB)
	} else {
		logger.InfoContext(ctx, "redis address not set, otp rate limiting disabled")
	}

	// 5. Delivery channels.
	gateway := twofactor.NewClient(twofactor.Config{
		BaseURL:        cfg.TwoFactor.BaseURL,
		OTPTimeout:     cfg.TwoFactor.ChannelTimeout,
		SendTimeout:    cfg.TwoFactor.SendTimeout,
		BalanceTimeout: cfg.TwoFactor.BalanceTimeout,
	})
	channels, err := createChannels(cfg, methods, gateway, keys, loadAWS, awsCfg, logger)
	if err != nil {
		closeAll(redisClient, pool)
		return nil, fmt.Errorf("api setup: %w", err)
	}

	// 6. Verification.
	issuer := app.NewIssuer(app.IssuerConfig{
		Channels:        channels,
		Store:           store,
		RateLimiter:     limiter,
		Clock:           clock,
		Logger:          logger,
		Validity:        cfg.OTP.Validity,
		ChannelTimeout:  cfg.TwoFactor.ChannelTimeout,
		StoreTimeout:    cfg.Postgres.Timeout,
		RateLimitPhone:  cfg.OTP.RateLimitPhone,
		RateLimitIP:     cfg.OTP.RateLimitIP,
		RateLimitWindow: cfg.OTP.RateLimitWindow,
	})
	verifier := app.NewVerifier(app.VerifierConfig{
		Store:        store,
		Clock:        clock,
		Logger:       logger,
		StoreTimeout: cfg.Postgres.Timeout,
	})

	// 7. Operational SMS and the balance monitor.
	smsSvc := smsapp.NewService(smsapp.ServiceConfig{
		Gateway: smsadapter.NewGateway(gateway, smsadapter.GatewayConfig{
			PromotionalKey:    keys.promotional,
			TransactionalKey:  keys.transactional,
			PromotionalSender: cfg.TwoFactor.PromotionalSender,
			Template:          cfg.TwoFactor.SMSTemplate,
		}),
		Logger: logger,
	})

	var monitor *smsapp.BalanceMonitor
	if cfg.Monitor.BalanceSchedule != "" && !(keys.promotional.IsEmpty() && keys.transactional.IsEmpty()) {
		monitor, err = smsapp.NewBalanceMonitor(smsapp.BalanceMonitorConfig{
			Checker:  smsSvc,
			Schedule: cfg.Monitor.BalanceSchedule,
			Timeout:  cfg.TwoFactor.BalanceTimeout,
			Logger:   logger,
		})
		if err != nil {
			closeAll(redisClient, pool)
			return nil, fmt.Errorf("api setup: %w", err)
		}
		monitor.Start()
		logger.InfoContext(ctx, "sms balance monitor started",
			slog.String("schedule", cfg.Monitor.BalanceSchedule),
		)
	}

	// 8. Auctions.
	auctionSvc := auctionapp.NewService(auctionapp.ServiceConfig{
		Repo:     auctionadapter.NewPostgresRepository(pool),
		Clock:    clock,
		Location: loc,
		Logger:   logger,
	})

	// 9. Routes.
	port.NewOTPHandler(issuer, verifier).Mount(deps.Router)
	smsport.NewSMSHandler(smsSvc).Mount(deps.Router)
	auctionport.NewAuctionHandler(auctionSvc).Mount(deps.Router)

	logger.InfoContext(ctx, "api service initialized",
		slog.String("otp_store", cfg.OTP.Store),
		slog.Int("otp_channels", len(channels)),
	)

	cleanup := func() {
		if monitor != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.TwoFactor.BalanceTimeout)
			if err := monitor.Stop(stopCtx); err != nil {
				logger.Warn("balance monitor stop", slog.String("error", err.Error()))
			}
			cancel()
		}
		closeAll(redisClient, pool)
	}
	return cleanup, nil
}

// resolveKeys returns the gateway keys, looking up any secret references
// in Secrets Manager or SSM Parameter Store.
func resolveKeys(ctx context.Context, cfg *config.Config, loadAWS func() (aws.Config, error), awsCfg awsenv.Config) (gatewayKeys, error) {
	keys := gatewayKeys{
		otp:           cfg.TwoFactor.OTPAPIKey,
		promotional:   cfg.TwoFactor.PromotionalAPIKey,
		transactional: cfg.TwoFactor.TransactionalAPIKey,
	}

	refs := []*domain.SecretString{&keys.otp, &keys.promotional, &keys.transactional}
	if !slices.ContainsFunc(refs, func(k *domain.SecretString) bool { return adapter.IsSecretRef(k.Expose()) }) {
		return keys, nil
	}

	sdk, err := loadAWS()
	if err != nil {
		return gatewayKeys{}, err
	}
	source := adapter.NewAWSSecretSource(awsenv.NewSecretsManager(sdk, awsCfg), awsenv.NewSSM(sdk, awsCfg))
	for _, k := range refs {
		v, err := source.Resolve(ctx, *k)
		if err != nil {
			return gatewayKeys{}, fmt.Errorf("resolve gateway key: %w", err)
		}
		*k = v
	}
	return keys, nil
}

// createChannels builds the OTP cascade in configured order.
// Local: a missing OTP key swaps the gateway channels for a log-only one.
func createChannels(
	cfg *config.Config,
	methods []domain.DeliveryMethod,
	gateway *twofactor.Client,
	keys gatewayKeys,
	loadAWS func() (aws.Config, error),
	awsCfg awsenv.Config,
	logger *slog.Logger,
) ([]app.Channel, error) {
	if cfg.IsLocal() && keys.otp.IsEmpty() {
		logger.Info("using log-only OTP channel for local development")
		return []app.Channel{adapter.NewLogChannel(logger)}, nil
	}

	channels := make([]app.Channel, 0, len(methods))
	for _, m := range methods {
		switch m {
		case domain.DeliveryTemplateSMS:
			channels = append(channels, adapter.NewTemplateChannel(gateway, keys.otp, cfg.TwoFactor.OTPTemplate))
		case domain.DeliverySimpleSMS:
			channels = append(channels, adapter.NewSimpleChannel(gateway, keys.otp))
		case domain.DeliveryTransactionalSMS:
			channels = append(channels, adapter.NewTransactionalChannel(
				gateway, keys.otp, cfg.TwoFactor.TSMSSender, cfg.TwoFactor.TSMSMessage))
		case domain.DeliverySNSSMS:
			sdk, err := loadAWS()
			if err != nil {
				return nil, err
			}
			channels = append(channels, adapter.NewSNSChannel(awsenv.NewSNS(sdk, awsCfg), cfg.SNS.SenderID))
		default:
			return nil, fmt.Errorf("otp channel %s: %w", m, domain.ErrChannelNotEnabled)
		}
	}
	return channels, nil
}

type closer interface {
	Close()
}

func closeAll(redisClient *redis.Client, pool closer) {
	if redisClient != nil {
		_ = redisClient.Close()
	}
	pool.Close()
}
