package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/go-while/go-spendpi/internal/config"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 128
)

// WebServer represents the web server
type WebServer struct {
	Router     *gin.Engine
	Config     *config.WebConfig
	StartTime  time.Time // Track server start time for uptime calculations
	blueprints []Blueprint
	templates  *templateStore
	watcher    *templateWatcher // nil unless templates are hot reloaded
	proxyNets  []*net.IPNet     // X-Forwarded-* is honoured only from these

	mux        sync.Mutex
	httpServer *http.Server
	closed     bool // set by Shutdown, Serve refuses to start afterwards
}

// TemplateData represents common template data
type TemplateData struct {
	Title      template.HTML
	AppVersion string
	Nav        []NavItem
}

// NavItem is one link of the global navigation
type NavItem struct {
	Name string
	Path string
}

// NewServer is the application factory: it builds a new gin engine from webconfig,
// installs middleware, loads templates and registers the "main" and "posts" route groups.
// Every call returns an independent instance. The gin mode is process wide and is
// left to the caller (see gin.SetMode).
func NewServer(webconfig *config.WebConfig) (*WebServer, error) {
	if err := webconfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid web config: %w", err)
	}

	router := gin.New()
	// 405 instead of 404 for a known path with the wrong method
	router.HandleMethodNotAllowed = true

	// Configure Gin to trust reverse proxy headers
	proxies := webconfig.TrustedProxies
	if proxies == nil {
		proxies = config.DefaultTrustedProxies
	}
	if err := router.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	proxyNets, err := parseTrustedProxies(proxies)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	server := &WebServer{
		Router:    router,
		Config:    webconfig,
		proxyNets: proxyNets,
	}
	router.Use(server.ApacheLogFormat(), gin.Recovery())

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))
	router.Use(server.RequestIDMiddleware())
	router.Use(server.ReverseProxyMiddleware())

	templates, err := newTemplateStore(webconfig.TemplatesDir)
	if err != nil {
		return nil, err
	}
	server.templates = templates

	if webconfig.Debug && webconfig.TemplatesDir != "" {
		watcher, err := watchTemplates(webconfig.TemplatesDir, templates.invalidate)
		if err != nil {
			return nil, fmt.Errorf("watch templates: %w", err)
		}
		server.watcher = watcher
	}

	server.blueprints = []Blueprint{
		newMainBlueprint(server),
		newPostsBlueprint(server),
	}
	server.setupRoutes()
	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	// Static files first (highest priority)
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))

	s.Router.Match(readMethods, "/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow:\n")
	})
	s.Router.Match(readMethods, "/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	for _, bp := range s.blueprints {
		registerBlueprint(s.Router, bp)
	}

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page Not Found", "no route for "+c.Request.URL.Path)
	})
	s.Router.NoMethod(func(c *gin.Context) {
		s.renderError(c, http.StatusMethodNotAllowed, "Method Not Allowed", c.Request.Method+" "+c.Request.URL.Path)
	})
}

// Start listens on the configured port and serves until Shutdown.
// It returns http.ErrServerClosed after a graceful shutdown, also when Shutdown came first.
func (s *WebServer) Start() error {
	if s.isClosed() {
		return http.ErrServerClosed
	}
	if s.Config.SSL && (s.Config.CertFile == "" || s.Config.KeyFile == "") {
		return errors.New("SSL enabled but cert_file or key_file not specified in config")
	}
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln, with TLS if configured. ln is closed on return.
func (s *WebServer) Serve(ln net.Listener) error {
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		ln.Close()
		return http.ErrServerClosed
	}
	s.StartTime = time.Now() // Set the start time for uptime calculations
	s.httpServer = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mux.Unlock()

	if s.Config.SSL {
		log.Printf("[WEB]: Starting HTTPS server on %s", ln.Addr())
		return srv.ServeTLS(ln, s.Config.CertFile, s.Config.KeyFile)
	}
	log.Printf("[WEB]: Starting HTTP server on %s", ln.Addr())
	return srv.Serve(ln)
}

func (s *WebServer) isClosed() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.closed
}

// Shutdown gracefully stops the HTTP server and the template watcher.
// A server that has not started yet will not start afterwards.
func (s *WebServer) Shutdown(ctx context.Context) error {
	var errs []error
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close template watcher: %w", err))
		}
	}

	s.mux.Lock()
	s.closed = true
	srv := s.httpServer
	s.mux.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Uptime returns how long the server has been running, zero before Start
func (s *WebServer) Uptime() time.Duration {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}

// RequestIDMiddleware echoes the client's X-Request-ID or generates a new one
func (s *WebServer) RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy.
// They are honoured only when the peer is one of the trusted proxies; the client IP
// itself is resolved by gin from the same list.
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.fromTrustedProxy(c.RemoteIP()) {
			c.Next()
			return
		}

		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}

		c.Next()
	}
}

func (s *WebServer) fromTrustedProxy(remoteIP string) bool {
	ip := net.ParseIP(remoteIP)
	if ip == nil {
		return false
	}
	for _, n := range s.proxyNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// parseTrustedProxies accepts CIDRs and bare IPs, like gin.Engine.SetTrustedProxies
func parseTrustedProxies(proxies []string) ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(proxies))
	for _, p := range proxies {
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid IP %q", p)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			p = fmt.Sprintf("%s/%d", p, bits)
		}
		_, n, err := net.ParseCIDR(p)
		if err != nil {
			return nil, err
		}
		nets = append(nets, n)
	}
	return nets, nil
}

// ApacheLogFormat logs requests in Apache combined format, followed by the request ID
func (s *WebServer) ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		requestID, _ := param.Keys[requestIDKey].(string)
		if requestID == "" {
			requestID = "-"
		}
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s" %s`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			param.Request.UserAgent(),
			requestID,
		)
	})
}
