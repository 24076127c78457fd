package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/http/api"
	"github.com/opensignal/signalhub/internal/http/ratelimit"
	"github.com/opensignal/signalhub/internal/http/websocket"
	"github.com/opensignal/signalhub/internal/hub"
	ratelimitlib "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type Server struct {
	*http.Server
	shutdownChannel chan bool
}

const defTimeout = 10 * time.Second
const debugWriteTimeout = 60 * time.Second
const rateLimitRate = time.Second
const rateLimitLimit = 10

// MakeServer builds the REST and WebSocket listener. version and commit are
// injected into the gin context so the meta handlers can read them back.
func MakeServer(cfg *config.Config, h *hub.Hub, db *gorm.DB, version, commit string) Server {
	if cfg.LogLevel == config.LogLevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := CreateRouter(cfg, h, db, version, commit)

	writeTimeout := defTimeout
	if cfg.LogLevel == config.LogLevelDebug {
		writeTimeout = debugWriteTimeout
	}

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port)
	slog.Info("http server listening", "addr", addr)
	s := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  defTimeout,
		WriteTimeout: writeTimeout,
	}
	s.SetKeepAlivesEnabled(false)

	return Server{
		s,
		make(chan bool),
	}
}

func addMiddleware(r *gin.Engine, cfg *config.Config, h *hub.Hub, version, commit string) {
	if cfg.Tracing.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("signalhub-api"))
	}

	r.Use(func(c *gin.Context) {
		c.Set("Hub", h)
		c.Set("Config", cfg)
		c.Set("Version", version)
		c.Set("Commit", commit)
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = false
	corsConfig.AllowOrigins = cfg.HTTP.CORSOrigins
	if len(cfg.HTTP.CORSOrigins) == 1 && cfg.HTTP.CORSOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowOrigins = nil
	}
	r.Use(cors.New(corsConfig))
}

func CreateRouter(cfg *config.Config, h *hub.Hub, db *gorm.DB, version, commit string) *gin.Engine {
	if cfg.LogLevel == config.LogLevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		slog.Error("failed setting trusted proxies", "error", err)
	}

	addMiddleware(r, cfg, h, version, commit)

	var store ratelimitlib.Store
	if db != nil {
		store = ratelimit.NewGORMStore(&ratelimit.GORMOptions{
			DB:    db,
			Rate:  rateLimitRate,
			Limit: rateLimitLimit,
		})
	} else {
		store = ratelimit.NewMemoryStore(&ratelimit.MemoryOptions{
			Rate:  rateLimitRate,
			Limit: rateLimitLimit,
		})
	}
	ratelimitMW := ratelimitlib.RateLimiter(store, &ratelimitlib.Options{
		ErrorHandler: func(c *gin.Context, info ratelimitlib.Info) {
			c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	api.ApplyRoutes(r, cfg.FriendAPI.Secret, ratelimitMW)
	websocket.NewHandler(h, cfg).ApplyRoutes(r)

	return r
}

func (s *Server) Stop() {
	slog.Info("stopping http server")
	const timeout = 5 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", "error", err)
	}
	<-s.shutdownChannel
}

var ErrClosed = errors.New("server closed")
var ErrFailed = errors.New("failed to start server")

func (s *Server) Start() error {
	g := new(errgroup.Group)
	g.Go(func() error {
		err := s.ListenAndServe()
		if err != nil {
			switch {
			case errors.Is(err, http.ErrServerClosed):
				s.shutdownChannel <- true
				return ErrClosed
			default:
				slog.Error("failed to start http server", "error", err)
				return ErrFailed
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err //nolint:golint,wrapcheck
	}
	return nil
}
