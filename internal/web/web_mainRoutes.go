package web

import (
	"github.com/gin-gonic/gin"
)

// mainBlueprint serves the site root
type mainBlueprint struct {
	s *WebServer
}

func newMainBlueprint(s *WebServer) *mainBlueprint {
	return &mainBlueprint{s: s}
}

func (b *mainBlueprint) Name() string   { return "main" }
func (b *mainBlueprint) Prefix() string { return "/" }

func (b *mainBlueprint) RegisterRoutes(rg *gin.RouterGroup) {
	page(rg, "/", b.homePage)
}

// homePage handles "/"
func (b *mainBlueprint) homePage(c *gin.Context) {
	b.s.renderTemplate(c, "index.html", b.s.getBaseTemplateData("home"))
}
