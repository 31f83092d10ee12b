package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/windbell/chime/pkg/internal/http/exts"
)

func sendUserNotification(c *fiber.Ctx) error {
	var data struct {
		UserID string            `json:"userId" validate:"required"`
		Title  string            `json:"title" validate:"required"`
		Body   string            `json:"body" validate:"required"`
		Data   map[string]string `json:"data"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	dispatcher.NotifyUser(c.UserContext(), data.UserID, data.Title, data.Body, data.Data)

	return c.JSON(fiber.Map{
		"status": "sent",
	})
}
