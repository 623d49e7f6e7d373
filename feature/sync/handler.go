package sync

import (
	"feedsync/core/logger"
	"feedsync/feature/feeds"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the sync feature.
type Handler struct {
	service *Service
	store   *feeds.Store
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, store *feeds.Store, log *zap.Logger) *Handler {
	return &Handler{service: service, store: store, logger: log}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	app.Post("/sync/:accountId", h.HandleSync)
	app.Get("/accounts/:accountId/feeds", h.HandleListFeeds)
	app.Get("/accounts/:accountId/groups", h.HandleListGroups)
	app.Get("/accounts/:accountId/groups/:groupId/feeds", h.HandleFeedsByGroup)
}

// HandleSync triggers a sync for one account.
// @Summary Trigger Sync
// @Description Synchronize one account, optionally scoped to a feed or group.
// @Tags sync
// @Produce json
// @Param accountId path int true "Account ID"
// @Param feedId query string false "Restrict sync to one feed"
// @Param groupId query string false "Restrict sync to one group"
// @Success 200 {object} map[string]string "Sync succeeded"
// @Failure 401 {object} map[string]string "Credentials rejected by provider"
// @Failure 502 {object} map[string]string "Transient provider failure"
// @Router /sync/{accountId} [post]
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("accountId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "accountId must be an integer",
		})
	}

	l := logger.WithRayID(h.logger, c)

	result := h.service.Sync(c.Context(), accountID, c.Query("feedId"), c.Query("groupId"))
	payload := fiber.Map{"status": result.Status.String()}
	if result.Reason != "" {
		payload["reason"] = result.Reason
	}

	switch {
	case result.Status == StatusSuccess:
		return c.JSON(payload)
	case result.Status == StatusRetry:
		l.Warn("Sync returned retriable failure", zap.String("reason", result.Reason))
		return c.Status(fiber.StatusBadGateway).JSON(payload)
	case result.Reason == "unauthorized":
		return c.Status(fiber.StatusUnauthorized).JSON(payload)
	default:
		l.Error("Sync failed", zap.String("reason", result.Reason))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(payload)
	}
}

// HandleListFeeds lists an account's feeds from the local store.
// @Summary List Feeds
// @Tags sync
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {array} models.Feed
// @Router /accounts/{accountId}/feeds [get]
func (h *Handler) HandleListFeeds(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("accountId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "accountId must be an integer",
		})
	}

	result, err := h.store.FeedsByAccount(c.Context(), accountID)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Feed listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}

// HandleListGroups lists an account's groups with their feeds resolved
// through the junction table.
// @Summary List Groups
// @Tags sync
// @Produce json
// @Param accountId path int true "Account ID"
// @Success 200 {array} models.GroupWithFeeds
// @Router /accounts/{accountId}/groups [get]
func (h *Handler) HandleListGroups(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("accountId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "accountId must be an integer",
		})
	}

	result, err := h.store.GroupsWithFeeds(c.Context(), accountID)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Group listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}

// HandleFeedsByGroup lists the feeds of one group via the junction table.
// @Summary List Feeds in Group
// @Tags sync
// @Produce json
// @Param accountId path int true "Account ID"
// @Param groupId path string true "Group ID"
// @Success 200 {array} models.Feed
// @Router /accounts/{accountId}/groups/{groupId}/feeds [get]
func (h *Handler) HandleFeedsByGroup(c *fiber.Ctx) error {
	accountID, err := c.ParamsInt("accountId")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "accountId must be an integer",
		})
	}

	result, err := h.store.FeedsByGroup(c.Context(), c.Params("groupId"), accountID)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Group feed listing failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}
