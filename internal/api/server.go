package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/felicity-fest/api/docs"
	v1 "github.com/felicity-fest/api/internal/api/handler/v1"
	"github.com/felicity-fest/api/internal/api/middleware"
	"github.com/felicity-fest/api/internal/config"
	"github.com/felicity-fest/api/internal/repository"
	"github.com/felicity-fest/api/internal/repository/dao"
	"github.com/felicity-fest/api/internal/service"
)

type Server struct {
	Config  *config.AppConfig
	Router  *gin.Engine
	Sweeper *service.Sweeper
}

func NewServer(conf *config.AppConfig, db *gorm.DB, notifier service.Notifier) (*Server, error) {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	authHandler := s.initAuthHandler(db)
	userHandler := s.initUserHandler(db)

	eventSvc := service.NewEventService(repository.NewEventRepository(dao.NewEventDAO(db)))
	eventHandler := s.initEventHandler(db, eventSvc)
	registrationHandler := s.initRegistrationHandler(db, notifier)

	s.MountHandlers(authHandler, userHandler, eventHandler, registrationHandler)

	sweeper, err := service.NewSweeper(eventSvc, conf.API.SweepInterval, zap.L())
	if err != nil {
		return nil, err
	}
	s.Sweeper = sweeper

	return s, nil
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initUserHandler(db *gorm.DB) *v1.UserHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewUserService(repo)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initEventHandler(db *gorm.DB, eventSvc *service.EventService) *v1.EventHandler {
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewEventHandler(eventSvc, uSvc)

	return handler
}

func (s *Server) initRegistrationHandler(db *gorm.DB, notifier service.Notifier) *v1.RegistrationHandler {
	registrationDAO := dao.NewRegistrationDAO(db)
	repo := repository.NewRegistrationRepository(registrationDAO)
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	userRepo := repository.NewUserRepository(dao.NewUserDAO(db))
	svc := service.NewRegistrationService(repo, eventRepo, userRepo, notifier, zap.L())
	uSvc := service.NewUserService(userRepo)
	handler := v1.NewRegistrationHandler(svc, uSvc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(authHandler *v1.AuthHandler, userHandler *v1.UserHandler, eventHandler *v1.EventHandler, registrationHandler *v1.RegistrationHandler) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	// The event catalog is public; everything that acts on it is not.
	catalog := s.Router.Group(basePath)
	{
		catalog.GET("/events", eventHandler.HandleListEvents)
		catalog.GET("/events/:eventID", eventHandler.HandleGetEvent)
	}

	authenticated := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		authenticated.GET("/users/me", userHandler.HandleGetMe)
		authenticated.GET("/users/:userID", userHandler.HandleGetUser)

		authenticated.GET("/organizer/events", eventHandler.HandleListMyEvents)
		authenticated.POST("/events", eventHandler.HandleCreateEvent)
		authenticated.PATCH("/events/:eventID", eventHandler.HandleUpdateEvent)
		authenticated.DELETE("/events/:eventID", eventHandler.HandleDeleteEvent)
		authenticated.POST("/events/:eventID/publish", eventHandler.HandlePublishEvent)
		authenticated.POST("/events/:eventID/close", eventHandler.HandleCloseEvent)

		authenticated.POST("/events/:eventID/register", registrationHandler.HandleCreateOrder)
		authenticated.GET("/events/:eventID/quota", registrationHandler.HandleGetQuota)
		authenticated.GET("/events/:eventID/registrations", registrationHandler.HandleListEventRegistrations)
		authenticated.GET("/events/:eventID/registrations/export", registrationHandler.HandleExportRegistrations)
		authenticated.POST("/events/:eventID/attendance", registrationHandler.HandleMarkAttendance)

		authenticated.GET("/registrations", registrationHandler.HandleListMyRegistrations)
		authenticated.GET("/registrations/:registrationID", registrationHandler.HandleGetRegistration)
		authenticated.POST("/registrations/:registrationID/payment-proof", registrationHandler.HandleUploadProof)
		authenticated.POST("/registrations/:registrationID/approve", registrationHandler.HandleApproveOrder)
		authenticated.POST("/registrations/:registrationID/reject", registrationHandler.HandleRejectOrder)
		authenticated.POST("/registrations/:registrationID/cancel", registrationHandler.HandleCancelOrder)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Felicity Fest API"
	docs.SwaggerInfo.Description = "Event and registration lifecycle API for the campus fest."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
