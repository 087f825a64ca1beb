// Package server exposes the ops HTTP surface: health, metrics, scheduler
// status and a read-only painting listing.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"doom-index/internal/domain"
	"doom-index/internal/observability"
	"doom-index/internal/storage"
)

// PaintingReader is the read side of the painting store.
type PaintingReader interface {
	GetByID(ctx context.Context, id string) (*domain.Painting, error)
	List(ctx context.Context, q storage.ListQuery) (*storage.ListPage, error)
}

// Options configures the Server.
type Options struct {
	Addr      string
	Paintings PaintingReader
	Tracker   *Tracker
	Logger    zerolog.Logger
}

// Server is the ops HTTP server.
type Server struct {
	opts   Options
	engine *gin.Engine
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	if opts.Tracker == nil {
		opts.Tracker = NewTracker()
	}
	opts.Logger = opts.Logger.With().Str("component", "server").Logger()

	s := &Server{opts: opts}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", Health)
	r.HEAD("/healthz", Health)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/status", s.status)
	r.GET("/paintings", s.listPaintings)
	r.GET("/paintings/:id", s.getPainting)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info().Str("addr", s.opts.Addr).Msg("ops server listening")
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Health handles /healthz.
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) status(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, s.opts.Tracker.Snapshot())
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) listPaintings(c *gin.Context) {
	q, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	page, err := s.opts.Paintings.List(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.opts.Logger.Error().Err(err).Msg("list paintings failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "list paintings failed"})
		return
	}

	items := make([]PaintingResponse, 0, len(page.Items))
	for _, p := range page.Items {
		items = append(items, toResponse(p))
	}
	c.JSON(http.StatusOK, ListResponse{Items: items, HasMore: page.HasMore, NextCursor: page.NextCursor})
}

func (s *Server) getPainting(c *gin.Context) {
	p, err := s.opts.Paintings.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "painting not found"})
		return
	}
	if err != nil {
		s.opts.Logger.Error().Err(err).Msg("get painting failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "get painting failed"})
		return
	}
	c.JSON(http.StatusOK, toResponse(p))
}

func parseListQuery(c *gin.Context) (storage.ListQuery, error) {
	var q storage.ListQuery

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.New("limit must be an integer")
		}
		q.Limit = n
	}
	dir, err := storage.ParseDirection(c.Query("direction"))
	if err != nil {
		return q, err
	}
	q.Direction = dir
	q.Cursor = c.Query("cursor")

	for _, b := range []struct {
		name string
		dst  **int64
	}{{"from", &q.From}, {"to", &q.To}} {
		v := c.Query(b.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return q, errors.New(b.name + " must be unix seconds")
		}
		*b.dst = &n
	}
	return q, nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.opts.Logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
