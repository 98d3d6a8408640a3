package web

import (
	"github.com/gin-gonic/gin"
)

// postsBlueprint serves everything under /posts
type postsBlueprint struct {
	s *WebServer
}

func newPostsBlueprint(s *WebServer) *postsBlueprint {
	return &postsBlueprint{s: s}
}

func (b *postsBlueprint) Name() string   { return "posts" }
func (b *postsBlueprint) Prefix() string { return "/posts" }

func (b *postsBlueprint) RegisterRoutes(rg *gin.RouterGroup) {
	page(rg, "/", b.indexPage)
	page(rg, "/categories/", b.categoriesPage)
}

// indexPage handles "/posts/"
func (b *postsBlueprint) indexPage(c *gin.Context) {
	b.s.renderTemplate(c, "posts/index.html", b.s.getBaseTemplateData("posts"))
}

// categoriesPage handles "/posts/categories/"
func (b *postsBlueprint) categoriesPage(c *gin.Context) {
	b.s.renderTemplate(c, "posts/categories.html", b.s.getBaseTemplateData("categories"))
}
