package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"rentdash/apps/api/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type navItem struct {
	Path  string
	Title string
}

var dashboardNav = []navItem{
	{Path: "/dashboard", Title: "Dashboard"},
	{Path: "/orders", Title: "Orders"},
	{Path: "/users", Title: "Users"},
	{Path: "/products", Title: "Products"},
	{Path: "/payments-table", Title: "Payments"},
}

func (h HandlerSet) registerPages(engine *gin.Engine) {
	engine.SetHTMLTemplate(pageTemplates)

	engine.GET("/", h.Home)
	for _, item := range dashboardNav {
		engine.GET(item.Path, h.page(item))
	}
}

func (h HandlerSet) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", gin.H{"DashboardPath": "/dashboard"})
}

// page renders a dashboard shell; the section's data is fetched client-side.
func (h HandlerSet) page(item navItem) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, "page.html", gin.H{
			"Title":   item.Title,
			"Path":    item.Path,
			"Section": item.Path[1:],
			"Nav":     dashboardNav,
			"Email":   middleware.CurrentEmail(c),
		})
	}
}
