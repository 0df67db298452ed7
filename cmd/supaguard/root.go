package main

import (
	"context"
	"time"

	"github.com/PaulFidika/supaguard/config"
	"github.com/PaulFidika/supaguard/core"
	"github.com/PaulFidika/supaguard/jwks"
	memorylimiter "github.com/PaulFidika/supaguard/ratelimit/memory"
	redislimiter "github.com/PaulFidika/supaguard/ratelimit/redis"
	redisstore "github.com/PaulFidika/supaguard/storage/redis"
	supabasekit "github.com/PaulFidika/supaguard/supabase"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:           "supaguard",
	Short:         "Supabase session token verification",
	Long:          `supaguard verifies end-user tokens against the authority's published signing keys.`,
	Version:       version,
	SilenceUsage:  true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		log = cfg.NewLogger()
		log.WithField("env", cfg.AppEnv).Debug("supaguard: config loaded")
		return nil
	},
}

// stack is the verifier plus the resources that must be released on exit.
type stack struct {
	verifier *supabasekit.Verifier
	resolver *jwks.Resolver
	store    jwks.DocumentStore
	limiter  jwks.RateLimiter
	closers  []func() error
}

func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.WithError(err).Warn("supaguard: close")
		}
	}
}

// buildStack wires the resolver to Redis when REDIS_URL is reachable and keeps state in
// process otherwise. Key-set documents are shared through Redis only when JWKS_STORE_KEY
// is set, so that every shared document is authenticated.
func buildStack(ctx context.Context, observer core.Observer) (*stack, error) {
	if observer == nil {
		observer = core.NopObserver{}
	}
	s := &stack{}
	ropts := []jwks.Option{jwks.WithLogger(log), jwks.WithObserver(observer)}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Warn("supaguard: redis unavailable, keeping state in process")
		} else {
			rdb = client
			s.closers = append(s.closers, client.Close)
		}
	}

	if rdb != nil {
		if cfg.JWKSStoreKey != "" {
			s.store = redisstore.NewDocumentStore(rdb, "supaguard:jwks:", cfg.JWKSCacheTTL).
				WithSigningKey([]byte(cfg.JWKSStoreKey))
		} else {
			log.Info("supaguard: JWKS_STORE_KEY unset, key sets are not shared through redis")
		}
	}

	if cfg.RefetchLimit > 0 {
		if rdb != nil {
			s.limiter = redislimiter.New(rdb, map[string]redislimiter.Limit{
				jwks.RefetchBucket: {Limit: cfg.RefetchLimit, Window: cfg.RefetchWindow},
			}).WithPrefix("supaguard:rl:")
		} else {
			s.limiter = memorylimiter.New(map[string]memorylimiter.Limit{
				jwks.RefetchBucket: {Limit: cfg.RefetchLimit, Window: cfg.RefetchWindow},
			})
		}
	}

	if s.store != nil {
		ropts = append(ropts, jwks.WithStore(s.store))
	}
	if s.limiter != nil {
		ropts = append(ropts, jwks.WithRefetchLimiter(s.limiter))
	}

	v, r, err := supabasekit.New(cfg.ToAccept(), ropts,
		supabasekit.WithLogger(log), supabasekit.WithObserver(observer))
	if err != nil {
		s.Close()
		return nil, err
	}
	s.verifier, s.resolver = v, r
	return s, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
