package middleware

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// LoggingMiddleware возвращает middleware для логирования запросов
func LoggingMiddleware(logger *log.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Path()
		latency := time.Since(start)
		ip := c.IP()

		var statusColor, methodColor, resetColor string
		if logger.Flags()&log.Lmsgprefix == 0 {
			statusColor, methodColor, resetColor = getStatusColor(status), getMethodColor(method), "\033[0m"
		}

		logger.Printf("%s %s%s%s %s %s%d%s %s %v",
			ip,
			methodColor, method, resetColor,
			path,
			statusColor, status, resetColor,
			latency,
			err,
		)

		return err
	}
}

func getStatusColor(status int) string {
	switch {
	case status >= 500:
		return "\033[31m" // Красный
	case status >= 400:
		return "\033[33m" // Желтый
	case status >= 300:
		return "\033[36m" // Голубой
	case status >= 200:
		return "\033[32m" // Зеленый
	default:
		return "\033[37m" // Белый
	}
}

func getMethodColor(method string) string {
	switch method {
	case "GET":
		return "\033[34m"
	case "POST":
		return "\033[33m"
	case "PUT":
		return "\033[36m"
	case "DELETE":
		return "\033[31m"
	case "PATCH":
		return "\033[32m"
	default:
		return "\033[37m"
	}
}
