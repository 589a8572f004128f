// Package router assembles the gin engine and its route table.
package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"moodiary/backend/internal/auth"
	"moodiary/backend/internal/handler"
	"moodiary/backend/internal/logger"
	"moodiary/backend/internal/models"
	"moodiary/backend/internal/observability"
)

const serviceName = "moodiary-backend"

// Deps are the collaborators the route table is built from. Metrics may be nil.
type Deps struct {
	Handler        *handler.Handler
	Auth           *auth.Authenticator
	Metrics        *observability.Metrics
	Log            *logger.Logger
	AllowedOrigins []string
	Tracing        bool
}

func New(d Deps) *gin.Engine {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if d.Tracing {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(RequestID(), RequestLogger(log))
	if d.Metrics != nil {
		router.Use(HTTPMetrics(d.Metrics))
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}
	if len(d.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     d.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
		}))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	h := d.Handler
	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", h.RegisterUser)
			authRoutes.POST("/login", h.LoginUser)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(d.Auth.AuthMiddleware())
		{
			userRoutes.GET("/me", h.GetMe)
			userRoutes.GET("/me/relations", h.GetRelations)
			userRoutes.GET("/me/requests", h.GetPendingRequests)
			userRoutes.GET("/me/events", h.StreamEvents)

			userRoutes.POST("/:id/request", h.SendRequest)
			userRoutes.POST("/:id/accept", h.AcceptRequest)
			userRoutes.POST("/:id/reject", h.RejectRequest)
			userRoutes.DELETE("/:id/relation", h.RemoveRelation)
		}

		mentorRoutes := apiV1.Group("/mentor")
		mentorRoutes.Use(d.Auth.AuthMiddleware(), auth.RequireRole(models.RoleMentor))
		{
			mentorRoutes.GET("/mentees", h.ListMentees)
			mentorRoutes.GET("/mentees/:id", h.GetMentee)
			mentorRoutes.PUT("/mentees/:id/notes", h.UpdateMenteeNotes)
			mentorRoutes.POST("/mentees/:id/reviewed", h.MarkMenteeReviewed)
			mentorRoutes.PUT("/mentees/:id/attention", h.SetMenteeAttention)
		}

		counsellorRoutes := apiV1.Group("/counsellor")
		counsellorRoutes.Use(d.Auth.AuthMiddleware(), auth.RequireRole(models.RoleCounsellor))
		{
			counsellorRoutes.GET("/clients", h.ListClients)
			counsellorRoutes.GET("/clients/:id", h.GetClient)
			counsellorRoutes.PUT("/clients/:id/notes", h.UpdateClientNotes)
			counsellorRoutes.PUT("/clients/:id/priority", h.SetClientPriority)
			counsellorRoutes.POST("/clients/:id/sessions", h.ScheduleSession)
		}

		adminRoutes := apiV1.Group("/admin")
		adminRoutes.Use(d.Auth.AuthMiddleware(), auth.AdminMiddleware())
		{
			users := adminRoutes.Group("/users")
			{
				users.GET("", h.ListUsers)
				users.PUT("/:id/roles", h.UpdateUserRoles)
				users.DELETE("/:id", h.DeleteUser)
				users.GET("/:id/mentees", h.GetUserMentees)
				users.PUT("/:id/mentees", h.AssignMentees)
				users.GET("/:id/clients", h.GetUserClients)
				users.PUT("/:id/clients", h.AssignClients)
			}
		}
	}

	return router
}
