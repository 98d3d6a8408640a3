// Package web provides the HTTP server and web interface for go-spendpi
package web

/*

	### **Core Files:**
	1. **`webserver_core_routes.go`** - Application factory, middleware, server lifecycle
	2. **`blueprint.go`** - Route group contract and registration
	3. **`web_utils.go`** - Base template data, rendering and error pages
	4. **`templates.go`** - Template source and per-page cache
	5. **`template_watcher.go`** - fsnotify hot reload for templates on disk
	6. **`embedded_static.go`** - Embedded templates and static assets

	### **Route Groups:**
	7. **`web_mainRoutes.go`** - "main" group: "/"
	8. **`web_postsRoutes.go`** - "posts" group: "/posts/", "/posts/categories/"

*/
