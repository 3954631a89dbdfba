// Package server implements the relay proxy: it authenticates the caller,
// validates the payload, forwards the request to the upstream model
// provider, and classifies every failure into the shared taxonomy before it
// goes back over the wire. The handler is stateless per request; the
// analytics sink and upstream client are the only shared collaborators and
// both are safe for concurrent use.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/lithammer/shortuuid/v4"

	"parley/fault"
	"parley/model"
	"parley/provider"
)

// maxMessageLen caps the inbound message size; anything larger is malformed
// input, not a transport problem.
const maxMessageLen = 32_000

// httpRecordTimeout bounds the detached analytics write.
const httpRecordTimeout = 5 * time.Second

// Options wires the server's collaborators.
type Options struct {
	Logger        *slog.Logger
	Auth          *Authenticator
	Upstream      model.Provider
	Analytics     UsageRecorder // optional
	DefaultParams model.ModelParams
}

// Server is the relay proxy HTTP service.
type Server struct {
	e             *echo.Echo
	srv           *http.Server
	logger        *slog.Logger
	auth          *Authenticator
	upstream      model.Provider
	analytics     UsageRecorder
	defaultParams model.ModelParams
}

// New assembles the echo server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	params := opts.DefaultParams
	if params == (model.ModelParams{}) {
		params = model.DefaultParams()
	}

	s := &Server{
		e:             echo.New(),
		logger:        logger,
		auth:          opts.Auth,
		upstream:      opts.Upstream,
		analytics:     opts.Analytics,
		defaultParams: params,
	}

	s.e.Use(s.requestID)
	s.e.GET("/healthz", s.handleHealth)
	s.e.POST("/api/v1/chat", s.handleChat)
	return s
}

// Handler exposes the underlying mux, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start serves until the listener fails or is shut down.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.e}
	return s.srv.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) requestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		c.Response().Header().Set("X-Request-Id", shortuuid.New())
		return next(c)
	}
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat gates every inbound request: authentication first, then shape
// validation, then the upstream call. The usage event is recorded only
// after the upstream call succeeds.
func (s *Server) handleChat(c *echo.Context) error {
	principal, err := s.auth.Authenticate(c.Request())
	if err != nil {
		return s.writeFault(c, err)
	}

	var req provider.ChatRequest
	if err := c.Bind(&req); err != nil {
		return s.writeFault(c, fault.Wrap(fault.KindInvalidArgument, "request body is not valid JSON", err))
	}
	if strings.TrimSpace(req.Message) == "" {
		return s.writeFault(c, fault.New(fault.KindInvalidArgument, "message must not be empty"))
	}
	if len(req.Message) > maxMessageLen {
		return s.writeFault(c, fault.Newf(fault.KindInvalidArgument, "message exceeds %d bytes", maxMessageLen))
	}

	params := s.defaultParams
	if req.ModelParameters != nil {
		if err := req.ModelParameters.Validate(); err != nil {
			return s.writeFault(c, err)
		}
		params = *req.ModelParameters
	}

	ctx := c.Request().Context()
	text, err := s.upstream.Ask(ctx, req.Message, params)
	if err != nil {
		classified := fault.Classify(err)
		s.logger.Warn("upstream call failed",
			"principal", principal.ID,
			"kind", classified.Kind,
			"detail", classified.Detail,
		)
		return s.writeFault(c, classified)
	}

	modelName := s.upstream.GetModel()
	s.recordUsage(principal, len(req.Message), len(text), modelName)

	return c.JSON(http.StatusOK, provider.ChatResponse{
		Response: text,
		Model:    modelName,
	})
}

// recordUsage is fire-and-forget: an analytics failure must never fail the
// parent request. Only lengths and attribution are recorded, never content.
func (s *Server) recordUsage(principal Principal, inputLen, outputLen int, modelName string) {
	if s.analytics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), httpRecordTimeout)
		defer cancel()
		if err := s.analytics.Record(ctx, principal.ID, inputLen, outputLen, modelName); err != nil {
			s.logger.Warn("failed to record usage event", "err", err)
		}
	}()
}

// writeFault renders a classified error as the wire envelope. The local
// NOT_FOUND kind never crosses the wire as its own category.
func (s *Server) writeFault(c *echo.Context, err error) error {
	classified := fault.Classify(err)
	kind := classified.Kind
	if kind == fault.KindNotFound {
		kind = fault.KindInternal
	}
	return c.JSON(fault.StatusCode(kind), provider.ErrorEnvelope{
		Error: provider.ErrorBody{
			Status:  string(kind),
			Message: classified.Message,
			Detail:  classified.Detail,
		},
	})
}
