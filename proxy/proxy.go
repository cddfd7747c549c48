// Package proxy provides the development server that consumes a rules.Set:
// matched requests are rewritten and forwarded upstream, and everything else
// is served from a local directory.
package proxy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberproxy "github.com/gofiber/fiber/v2/middleware/proxy"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/papercomputeco/devproxy/pkg/logger"
	"github.com/papercomputeco/devproxy/pkg/rules"
)

// ErrorResponse is the JSON body returned when the dev server itself fails a
// request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// route is everything needed to forward requests for one rule.
type route struct {
	rule   *rules.Rule
	client *fasthttp.Client
	logger *zap.Logger
}

// Proxy is a development HTTP server that forwards requests matching its rule
// set to their upstream targets. The rule set is fixed for the lifetime of
// the Proxy.
type Proxy struct {
	config Config
	rules  *rules.Set
	routes map[rules.Pattern]*route
	logger *zap.Logger
	server *fiber.App
}

// New creates a new Proxy.
func New(config Config, logger *zap.Logger) (*Proxy, error) {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	set := config.Rules
	if set == nil {
		set = rules.Default()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	p := &Proxy{
		config: config,
		rules:  set,
		routes: make(map[rules.Pattern]*route, set.Len()),
		logger: logger,
		server: app,
	}

	for _, r := range set.Rules() {
		rt := p.newRoute(r)
		p.routes[r.Pattern()] = rt
		rt.logger.Info("proxy rule loaded",
			zap.Bool("secure", r.Secure()),
			zap.String("log_level", string(r.LogLevel())),
		)
	}

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	// Rule inspection
	app.Get("/__devproxy/rules", adaptor.HTTPHandlerFunc(p.handleRules))

	app.Use(p.handleProxy)

	if config.StaticDir != "" {
		app.Static("/", config.StaticDir)
		logger.Info("serving static files", zap.String("dir", config.StaticDir))
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not found"})
	})

	return p, nil
}

func (p *Proxy) newRoute(r *rules.Rule) *route {
	client := &fasthttp.Client{
		NoDefaultUserAgentHeader: true,
		DisablePathNormalizing:   true,
	}
	if !r.Secure() {
		client.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	level := r.LogLevel().ZapLevel()
	if p.config.Debug {
		level = zapcore.DebugLevel
	}

	l := zap.NewNop()
	if !r.LogLevel().Silent() {
		l = logger.WithLevel(p.logger, level).With(
			zap.String("rule", r.Pattern().String()),
			zap.String("target", r.Target().String()),
		)
	}

	return &route{rule: r, client: client, logger: l}
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting dev server",
		zap.String("listen", p.config.ListenAddr),
		zap.Int("rules", p.rules.Len()),
	)

	return p.server.Listen(p.config.ListenAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (p *Proxy) Shutdown(ctx context.Context) error {
	return p.server.ShutdownWithContext(ctx)
}

// handleProxy runs the matched rule's pre-forward hook once and forwards the
// request upstream. Unmatched requests, and requests the hook bypasses, fall
// through to the local handlers.
func (p *Proxy) handleProxy(c *fiber.Ctx) error {
	r, ok := p.rules.Match(c.Path())
	if !ok {
		return c.Next()
	}
	rt := p.routes[r.Pattern()]

	if bypass := r.PreForward(requestHeaders{h: &c.Request().Header}); bypass != "" {
		rt.logger.Debug("bypassing proxy",
			zap.String("path", c.Path()),
			zap.String("bypass", bypass),
		)
		c.Path(bypass)
		return c.Next()
	}

	return p.forward(c, rt)
}

// forward sends the request to the rule's target, keeping the original path
// and query string.
func (p *Proxy) forward(c *fiber.Ctx, rt *route) error {
	startTime := time.Now()
	// the parsed path and query, so absolute-form request targets work too
	upstreamURL := strings.TrimRight(rt.rule.Target().String(), "/") + string(c.Request().URI().RequestURI())

	rt.logger.Debug("forwarding request to upstream",
		zap.String("method", c.Method()),
		zap.String("url", upstreamURL),
		zap.String("host", string(c.Request().Header.Host())),
	)

	// honour the Host the hook set rather than deriving it from the URL
	c.Request().UseHostHeader = true

	if err := fiberproxy.DoTimeout(c, upstreamURL, p.config.Timeout, rt.client); err != nil {
		rt.logger.Error("upstream request failed",
			zap.String("url", upstreamURL),
			zap.Error(err),
		)
		c.Response().Reset()
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "upstream request failed"})
	}

	rt.logger.Debug("received response from upstream",
		zap.String("url", upstreamURL),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(startTime)),
	)

	return nil
}

// rulesResponse is the body of GET /__devproxy/rules.
type rulesResponse struct {
	Count int           `json:"count"`
	Rules []*rules.Rule `json:"rules"`
}

// handleRules reports the loaded rule set in match order.
func (p *Proxy) handleRules(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := rulesResponse{Count: p.rules.Len(), Rules: p.rules.Rules()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		p.logger.Error("failed to encode rules", zap.Error(err))
	}
}
