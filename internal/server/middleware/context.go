package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/afriplan/takeoff/pkg/store"
)

// App carries the shared clients every handler needs.
type App struct {
	DBConn      *pgxpool.Pool
	Queue       *amqp091.Channel
	S3          *s3.Client
	Runs        store.RunStore
	Corrections store.CorrectionStore
}

// AppContext wraps the echo context with the shared application state.
type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
