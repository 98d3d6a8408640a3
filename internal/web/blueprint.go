package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// readMethods are answered by every page; HEAD shares the GET handler
var readMethods = []string{http.MethodGet, http.MethodHead}

// allowHeader lists what a page answers, for OPTIONS and 405 responses
var allowHeader = strings.Join(append(append([]string{}, readMethods...), http.MethodOptions), ", ")

// Blueprint is a named group of routes mounted under a common prefix.
type Blueprint interface {
	Name() string
	Prefix() string
	RegisterRoutes(rg *gin.RouterGroup)
}

// registerBlueprint mounts bp on router under its prefix
func registerBlueprint(router *gin.Engine, bp Blueprint) {
	group := router.Group(bp.Prefix())
	bp.RegisterRoutes(group)
	log.Printf("[WEB]: Registered route group %q at %s", bp.Name(), group.BasePath())
}

// page registers handler for GET and HEAD on path and answers OPTIONS with the allowed methods
func page(rg *gin.RouterGroup, path string, handler gin.HandlerFunc) {
	rg.Match(readMethods, path, handler)
	rg.OPTIONS(path, func(c *gin.Context) {
		c.Header("Allow", allowHeader)
		c.Status(http.StatusOK)
	})
}
