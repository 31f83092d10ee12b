package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/windbell/chime/pkg/internal/services"
)

var dispatcher *services.Dispatcher

func MapAPIs(app *fiber.App, baseURL string, d *services.Dispatcher) {
	dispatcher = d

	api := app.Group(baseURL).Name("API")
	{
		calls := api.Group("/calls").Name("Calls API")
		{
			calls.Post("/incoming", notifyIncomingCall)
			calls.Post("/reject", notifyRejectedCall)
		}

		api.Post("/devices", registerDevice)
		api.Post("/notifications", sendUserNotification)
	}
}
