package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/windbell/chime/pkg/internal/http/exts"
	"github.com/windbell/chime/pkg/internal/services"
)

func registerDevice(c *fiber.Ctx) error {
	var data struct {
		UserID     string `json:"userId" validate:"required"`
		AppID      string `json:"appId" validate:"required"`
		Token      string `json:"token" validate:"required"`
		DeviceName string `json:"deviceName"`
	}
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	destination, err := services.RegisterDestination(data.UserID, data.AppID, data.Token, data.DeviceName)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(destination)
}
