package httpcontroller

import (
	"fmt"
	"io"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echolog "github.com/labstack/gommon/log"

	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// echoLogger routes Echo's internal logging into the module logger.
// Output, prefix, level and header are managed by the central logger.
type echoLogger struct {
	log logger.Logger
}

var _ echo.Logger = (*echoLogger)(nil)

func newEchoLogger(log logger.Logger) *echoLogger {
	return &echoLogger{log: log}
}

func (a *echoLogger) Output() io.Writer         { return io.Discard }
func (a *echoLogger) SetOutput(io.Writer)       {}
func (a *echoLogger) Prefix() string            { return "" }
func (a *echoLogger) SetPrefix(string)          {}
func (a *echoLogger) Level() echolog.Lvl        { return echolog.INFO }
func (a *echoLogger) SetLevel(echolog.Lvl)      {}
func (a *echoLogger) SetHeader(string)          {}
func (a *echoLogger) Print(i ...any)            { a.log.Info(fmt.Sprint(i...)) }
func (a *echoLogger) Printf(f string, i ...any) { a.log.Info(fmt.Sprintf(f, i...)) }
func (a *echoLogger) Printj(j echolog.JSON)     { a.log.Info("echo", logger.Any("data", j)) }
func (a *echoLogger) Debug(i ...any)            { a.log.Debug(fmt.Sprint(i...)) }
func (a *echoLogger) Debugf(f string, i ...any) { a.log.Debug(fmt.Sprintf(f, i...)) }
func (a *echoLogger) Debugj(j echolog.JSON)     { a.log.Debug("echo", logger.Any("data", j)) }
func (a *echoLogger) Info(i ...any)             { a.log.Info(fmt.Sprint(i...)) }
func (a *echoLogger) Infof(f string, i ...any)  { a.log.Info(fmt.Sprintf(f, i...)) }
func (a *echoLogger) Infoj(j echolog.JSON)      { a.log.Info("echo", logger.Any("data", j)) }
func (a *echoLogger) Warn(i ...any)             { a.log.Warn(fmt.Sprint(i...)) }
func (a *echoLogger) Warnf(f string, i ...any)  { a.log.Warn(fmt.Sprintf(f, i...)) }
func (a *echoLogger) Warnj(j echolog.JSON)      { a.log.Warn("echo", logger.Any("data", j)) }
func (a *echoLogger) Error(i ...any)            { a.log.Error(fmt.Sprint(i...)) }
func (a *echoLogger) Errorf(f string, i ...any) { a.log.Error(fmt.Sprintf(f, i...)) }
func (a *echoLogger) Errorj(j echolog.JSON)     { a.log.Error("echo", logger.Any("data", j)) }

func (a *echoLogger) Fatal(i ...any) {
	a.log.Error(fmt.Sprint(i...))
	_ = a.log.Flush()
	os.Exit(1)
}

func (a *echoLogger) Fatalf(f string, i ...any) {
	a.Fatal(fmt.Sprintf(f, i...))
}

func (a *echoLogger) Fatalj(j echolog.JSON) {
	a.Fatal(fmt.Sprint(j))
}

func (a *echoLogger) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	a.log.Error(msg)
	panic(msg)
}

func (a *echoLogger) Panicf(f string, i ...any) {
	a.Panic(fmt.Sprintf(f, i...))
}

func (a *echoLogger) Panicj(j echolog.JSON) {
	a.Panic(fmt.Sprint(j))
}

// initLogger replaces Echo's logger with the module logger.
func (s *Server) initLogger() {
	s.Echo.Logger = newEchoLogger(GetLogger().Module("echo"))
}

// requestLogger logs one line per request to the access module.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	accessLog := GetLogger().Module("access")

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:          true,
		LogStatus:       true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogMethod:       true,
		LogError:        true,
		LogResponseSize: true,
		LogRequestID:    true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			status := v.Status
			if v.Error != nil {
				status = statusFromError(v.Error)
			}

			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", status),
				logger.Duration("latency", v.Latency),
				logger.String("remote_ip", v.RemoteIP),
				logger.Int64("bytes_out", v.ResponseSize),
				logger.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				fields = append(fields,
					logger.Error(v.Error),
					logger.String("category", string(errors.CategoryOf(v.Error))))
			}

			reqLog := accessLog.WithContext(c.Request().Context())
			switch {
			case status >= 500:
				reqLog.Error("request", fields...)
			case status >= 400:
				reqLog.Warn("request", fields...)
			default:
				reqLog.Info("request", fields...)
			}
			return nil
		},
	})
}
