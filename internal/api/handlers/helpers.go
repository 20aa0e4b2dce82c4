package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

func GetSiteID(c *fiber.Ctx) int64 {
	siteID, _ := strconv.Atoi(c.Locals("site_id").(string))
	return int64(siteID)
}
