package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type PostHandler struct {
	s     service.PostService
	queue service.PublishQueue
}

func NewPostHandler(s service.PostService, queue service.PublishQueue) *PostHandler {
	return &PostHandler{s: s, queue: queue}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	userID := GetUserID(c)

	form, err := c.MultipartForm()
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse form",
		})
	}

	pc := &transfer.PostCreation{
		Caption:        c.FormValue("caption"),
		Title:          c.FormValue("title"),
		ScheduledTime:  c.FormValue("scheduled_time"),
		TargetAccounts: c.FormValue("target_accounts"),
	}
	files := form.File["files"]

	postID, delay, err := h.s.CreatePost(c.Context(), siteID, userID, pc, files)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := h.queue.EnqueuePost(c.Context(), postID, delay); err != nil {
		// The scheduler tick will still pick the post up when it is due.
		slog.Info(err.Error(), "post_id", postID)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"post_id": postID,
		"message": "Post scheduled successfully",
	})
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	postID := c.QueryInt("id", 0)

	if postID != 0 {
		status, err := h.s.PostStatus(c.Context(), siteID, int64(postID))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get post",
			})
		}

		return c.Status(fiber.StatusOK).JSON(status)
	}

	posts, err := h.s.List(c.Context(), siteID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	postID := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), siteID, int64(postID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
