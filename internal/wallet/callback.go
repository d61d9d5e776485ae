package wallet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DefaultCallbackPath is where the wallet returns control after signing.
const DefaultCallbackPath = "/callback"

// CallbackServer receives wallet responses over HTTP and delivers them to a Linker.
type CallbackServer struct {
	linker *Linker
	logger *zap.Logger
	engine *gin.Engine
}

func NewCallbackServer(linker *Linker, path string, logger *zap.Logger) *CallbackServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = DefaultCallbackPath
	}

	s := &CallbackServer{
		linker: linker,
		logger: logger,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.engine.GET(path, s.handleCallback)
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return s
}

// Handler exposes the router, mainly for tests.
func (s *CallbackServer) Handler() http.Handler {
	return s.engine
}

// Serve runs the server on ln until ctx ends.
func (s *CallbackServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown callback server: %w", err)
		}
		return nil
	}
}

// ListenAndServe listens on addr and serves until ctx ends.
func (s *CallbackServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.logger.Info("callback server listening", zap.String("addr", ln.Addr().String()))
	return s.Serve(ctx, ln)
}

func (s *CallbackServer) handleCallback(c *gin.Context) {
	resp, err := ParseResponse(c.Request.URL.Query())
	if err != nil {
		s.logger.Warn("invalid wallet callback", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claimed := s.linker.Deliver(resp)
	s.logger.Info("wallet callback",
		zap.String("request_id", resp.RequestID),
		zap.String("status", resp.Status),
		zap.Int("raw_txs", len(resp.RawTxs)),
		zap.Bool("claimed", claimed),
	)
	c.JSON(http.StatusOK, gin.H{
		"request_id": resp.RequestID,
		"claimed":    claimed,
	})
}

func (s *CallbackServer) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
