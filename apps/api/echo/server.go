package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/class"
	"github.com/trezcool/mahudhurio/core/dashboard"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		Translator    ut.Translator
		UserSvc       *user.Service
		ClassSvc      *class.Service
		StudentSvc    *student.Service
		AttendanceSvc *attendance.Service
		DashboardSvc  *dashboard.Service
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		errs:       make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Debug = s.Conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogURI:       true,
			LogStatus:    true,
			LogMethod:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
				s.Logger.Info("request", map[string]interface{}{
					"request_id": v.RequestID,
					"method":     v.Method,
					"uri":        v.URI,
					"status":     v.Status,
					"latency":    v.Latency.String(),
				})
				return nil
			},
		}))
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", s.home)
	s.app.GET("/health-check", healthCheck)

	v1 := s.app.Group("/v1")
	auth := authMiddleware(s.Conf.SecretKey, s.UserSvc)

	registerUserAPI(v1, auth, s.Conf, s.UserSvc)
	registerDashboardAPI(v1, auth, s.DashboardSvc)
	registerAttendanceAPI(v1, auth, s.AttendanceSvc)
	registerStudentAPI(v1, auth, s.StudentSvc)
	registerClassAPI(v1, auth, s.ClassSvc)
}

// Start listens on the configured address; failures are reported on Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errs <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errs
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.Conf.AppName+" API!")
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func healthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, healthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}
