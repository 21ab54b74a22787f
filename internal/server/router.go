package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *Server) SetUpRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestId())
	router.Use(Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.conf.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "X-Request-Id"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})
	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})

	api := router.Group("/api")
	api.Use(TrySetUserToContext(s.conf.JwtSecret))
	s.SetUpApiRouter(api)

	return router
}

func (s *Server) SetUpApiRouter(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/register", s.handleRegister)
	auth.POST("/login", s.handleLogin)
	auth.POST("/logout", s.handleLogout)
	auth.GET("/user", NeedAuth(), s.handleGetUser)

	api.POST("/upload", s.handleUpload)
	api.GET("/history", s.handleHistory)
	api.GET("/summary/:dataset_id", SetDatasetToContext(true), s.handleGetDataset)

	api.GET("/datasets", s.handleListDatasets)
	ds := api.Group("/datasets/:dataset_id")
	ds.GET("", SetDatasetToContext(true), s.handleGetDataset)
	ds.DELETE("", NeedAuth(), SetDatasetToContext(false), s.handleDeleteDataset)
	ds.GET("/download_pdf", SetDatasetToContext(false), s.handleDownloadPDF)
	ds.GET("/csv", SetDatasetToContext(false), s.handleDownloadCSV)
	ds.GET("/parquet", SetDatasetToContext(true), s.handleDownloadParquet)
	ds.GET("/stats", SetDatasetToContext(true), s.handleStats)
}
