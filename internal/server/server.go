package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spigell/leadscout/internal/logger"
	"github.com/spigell/leadscout/internal/ranker"
	"github.com/spigell/leadscout/internal/session"
	"github.com/spigell/leadscout/internal/store"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Runner loads and ranks one session.
type Runner interface {
	Load(ctx context.Context, key store.Key) (*ranker.Input, error)
	Rank(ctx context.Context, input *ranker.Input, trackingID string) (*ranker.Outcome, error)
}

type Server struct {
	runner  Runner
	tracker *session.Tracker
	logger  *zap.Logger

	// base outlives requests; background runs derive from it.
	base context.Context
	wg   sync.WaitGroup

	// running admits one ranking at a time; queued runs stay pending.
	running sync.Mutex
}

func New(runner Runner, tracker *session.Tracker, log *zap.Logger) *Server {
	if tracker == nil {
		tracker = session.NewTracker(session.DefaultTTL)
	}
	return &Server{
		runner:  runner,
		tracker: tracker,
		logger:  logger.OrNop(log),
		base:    context.Background(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", s.Health)

	v1 := r.Group("/v1")
	v1.POST("/rankings", s.StartRanking)
	v1.GET("/rankings/:id", s.GetRanking)

	return r
}

// Serve listens on addr until ctx is cancelled, then waits for running rankings.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.base = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.Wait()
	return nil
}

// Wait blocks until every background ranking has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.tracker.Len()})
}

type StartRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	ChatID      string `json:"chat_id" binding:"required"`
	SessionUUID string `json:"session_uuid" binding:"required"`
	TrackingID  string `json:"tracking_id"`
}

func (s *Server) StartRanking(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := store.Key{UserID: req.UserID, ChatID: req.ChatID, SessionUUID: req.SessionUUID}
	if err := key.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess, created := s.tracker.GetOrCreate(req.TrackingID, key)
	if !created {
		c.JSON(http.StatusConflict, gin.H{
			"error":       "a ranking is already running for this tracking id",
			"id":          sess.ID,
			"tracking_id": sess.TrackingID,
		})
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(s.base, sess)
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"id":          sess.ID,
		"tracking_id": sess.TrackingID,
		"state":       sess.State,
	})
}

func (s *Server) GetRanking(c *gin.Context) {
	sess, ok := s.tracker.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "ranking not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) execute(ctx context.Context, sess session.Session) {
	log := s.logger.With(
		zap.String("run_id", sess.ID),
		zap.String(logger.FieldTrackingID, sess.TrackingID),
		zap.String("session", sess.Key.String()),
	)

	s.running.Lock()
	defer s.running.Unlock()

	if err := ctx.Err(); err != nil {
		s.fail(log, sess.ID, err)
		return
	}

	s.setState(sess.ID, func(st *session.Session) { st.State = session.StateRunning })
	log.Info("ranking started")

	input, err := s.runner.Load(ctx, sess.Key)
	if err != nil {
		s.fail(log, sess.ID, err)
		return
	}

	outcome, err := s.runner.Rank(ctx, input, sess.TrackingID)
	if err != nil {
		s.fail(log, sess.ID, err)
		return
	}

	summary := outcome.Summary()
	s.setState(sess.ID, func(st *session.Session) {
		st.State = session.StateCompleted
		st.Result = summary
	})
	log.Info("ranking finished", zap.Int("evaluated", summary.Evaluated), zap.Int("failed", summary.Failed))
}

func (s *Server) fail(log *zap.Logger, id string, err error) {
	log.Error("ranking failed", zap.Error(err))
	s.setState(id, func(st *session.Session) {
		st.State = session.StateFailed
		st.Error = err.Error()
	})
}

func (s *Server) setState(id string, fn func(*session.Session)) {
	if _, err := s.tracker.Update(id, fn); err != nil {
		s.logger.Warn("session state lost", zap.String("run_id", id), zap.Error(err))
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
