package web

import (
	"bytes"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-while/go-spendpi/internal/config"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const htmlContentType = "text/html; charset=utf-8"

// navigation is shared by every page
var navigation = []NavItem{
	{Name: "Home", Path: "/"},
	{Name: "Posts", Path: "/posts/"},
	{Name: "Categories", Path: "/posts/categories/"},
}

// GetPort returns the listening port from the config
func (s *WebServer) GetPort() int {
	return s.Config.ListenPort
}

// pageTitle turns a page name like "site-news" into "Site News"
func pageTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}

// getBaseTemplateData creates a TemplateData struct with the information every page shows
func (s *WebServer) getBaseTemplateData(page string) TemplateData {
	return TemplateData{
		Title:      template.HTML(template.HTMLEscapeString(pageTitle(page))),
		AppVersion: config.AppVersion,
		Nav:        navigation,
	}
}

// renderTemplate renders base.html + templateName with status 200
func (s *WebServer) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	body, err := s.execute(templateName, data)
	if err != nil {
		log.Printf("[WEB]: Error rendering template %s: %v", templateName, err)
		s.renderError(c, http.StatusInternalServerError, "Template error", err.Error())
		return
	}
	c.Data(http.StatusOK, htmlContentType, body)
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	errorData := struct {
		TemplateData
		Error      string
		StatusCode int
	}{
		TemplateData: s.getBaseTemplateData("error"),
		Error:        message,
		StatusCode:   statusCode,
	}
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)

	body, err := s.execute("error.html", errorData)
	if err != nil {
		log.Printf("[WEB]: Error rendering error template: %v", err)
		c.String(statusCode, "Error: %s - %s", message, errstring)
		return
	}
	c.Data(statusCode, htmlContentType, body)
}

// execute renders into a buffer so a failing template never leaves a half-written response
func (s *WebServer) execute(templateName string, data interface{}) ([]byte, error) {
	tmpl, err := s.templates.lookup(templateName)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, baseTemplate, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
