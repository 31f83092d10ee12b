package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/windbell/chime/pkg/internal/http/exts"
	"github.com/windbell/chime/pkg/internal/models"
)

func notifyIncomingCall(c *fiber.Ctx) error {
	var data models.CallEvent
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	log.Info().
		Str("room_id", data.RoomID).
		Str("sender_id", data.SenderID).
		Str("call_type", data.CallType).
		Msg("Incoming call event received.")

	dispatcher.DispatchCall(c.UserContext(), data)

	return c.JSON(fiber.Map{
		"status": "sent",
	})
}

func notifyRejectedCall(c *fiber.Ctx) error {
	var data models.CallEvent
	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}
	data.Reject = lo.ToPtr(true)

	log.Info().
		Str("room_id", data.RoomID).
		Str("sender_id", data.SenderID).
		Str("call_type", data.CallType).
		Msg("Call reject event received.")

	dispatcher.DispatchCall(c.UserContext(), data)

	return c.JSON(fiber.Map{
		"status": "rejected",
		"reject": true,
	})
}
