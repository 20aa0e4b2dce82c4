package handlers

import (
	"errors"
	"fmt"
	"log"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/platforms"
	"github.com/maheshrc27/socialflow/internal/service"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

type PlatformHandler struct {
	oauth       service.OAuthService
	credentials service.CredentialService
	registry    *platforms.Registry
	cfg         config.Config
}

func NewPlatformHandler(
	oauth service.OAuthService,
	credentials service.CredentialService,
	registry *platforms.Registry,
	cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		oauth:       oauth,
		credentials: credentials,
		registry:    registry,
		cfg:         cfg,
	}
}

func (h *PlatformHandler) ListPlatforms(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"platforms": h.registry.ListConfigured(),
	})
}

// Connect starts the authorization flow and redirects the user to the
// platform's consent page. Mastodon additionally takes ?instance=<domain>.
func (h *PlatformHandler) Connect(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	userID := GetUserID(c)
	platform := c.Params("platform")
	instance := c.Query("instance")

	authURL, err := h.oauth.Initiate(c.Context(), siteID, userID, platform, instance)
	if err != nil {
		slog.Info(err.Error())
		var cfgErr *platforms.ConfigurationError
		if errors.As(err, &cfgErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("%s is not configured", platform),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to start connection",
		})
	}

	return c.Redirect(authURL)
}

// Callback lands here from the platform's consent page. Every failure mode
// redirects back to the dashboard with an error kind the frontend can show;
// only success redirects clean.
func (h *PlatformHandler) Callback(c *fiber.Ctx) error {
	accountsURL := fmt.Sprintf("%s/dashboard/accounts", h.cfg.FrontendURL)

	if c.Query("error") != "" {
		// User denied consent on the platform side.
		return c.Redirect(accountsURL+"?error=access_denied", fiber.StatusTemporaryRedirect)
	}

	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		return c.Redirect(accountsURL+"?error=invalid_state", fiber.StatusTemporaryRedirect)
	}

	_, err := h.oauth.Complete(c.Context(), state, code)
	if err != nil {
		slog.Info(err.Error())
		kind := "exchange_failed"
		switch {
		case errors.Is(err, platforms.ErrInvalidState):
			kind = "invalid_state"
		case errors.Is(err, platforms.ErrExpiredState):
			kind = "expired_state"
		}
		return c.Redirect(accountsURL+"?error="+kind, fiber.StatusTemporaryRedirect)
	}

	return c.Redirect(accountsURL, fiber.StatusTemporaryRedirect)
}

// ConnectBluesky takes a handle and app password instead of a redirect flow.
func (h *PlatformHandler) ConnectBluesky(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	userID := GetUserID(c)

	var req transfer.BlueskyConnect
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request",
		})
	}

	accountID, err := h.oauth.ConnectBluesky(c.Context(), siteID, userID, req.Handle, req.AppPassword)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to connect bluesky account",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"account_id": accountID,
	})
}

func (h *PlatformHandler) ListAccounts(c *fiber.Ctx) error {
	siteID := GetSiteID(c)

	accounts, err := h.credentials.ListAccounts(c.Context(), siteID)
	if err != nil {
		log.Println(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch platform accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accounts)
}

func (h *PlatformHandler) DisconnectAccount(c *fiber.Ctx) error {
	siteID := GetSiteID(c)
	accountID := c.QueryInt("id", 0)

	err := h.credentials.Disconnect(c.Context(), siteID, int64(accountID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to disconnect account",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
