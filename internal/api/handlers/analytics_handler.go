package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
)

type AnalyticsHandler struct {
	s service.AnalyticsService
}

func NewAnalyticsHandler(s service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{s: s}
}

// AccountSnapshots returns daily snapshots for one account, ?days controlling
// the lookback (default 30).
func (h *AnalyticsHandler) AccountSnapshots(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	accountID := c.QueryInt("account_id", 0)
	days := c.QueryInt("days", 30)

	since := time.Now().AddDate(0, 0, -days)
	snapshots, err := h.s.ListSnapshots(c.Context(), siteID, int64(accountID), since)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to fetch analytics",
		})
	}

	return c.Status(fiber.StatusOK).JSON(snapshots)
}

func (h *AnalyticsHandler) PostAnalytics(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	postID := c.QueryInt("post_id", 0)

	analytics, err := h.s.ListPostAnalytics(c.Context(), siteID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to fetch post analytics",
		})
	}

	return c.Status(fiber.StatusOK).JSON(analytics)
}

func (h *AnalyticsHandler) OptimalTimes(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	accountID := c.QueryInt("account_id", 0)

	slots, err := h.s.ListOptimalTimes(c.Context(), siteID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to fetch optimal times",
		})
	}

	return c.Status(fiber.StatusOK).JSON(slots)
}
