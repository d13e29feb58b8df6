// handlers/dispenser.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"account-dispenser/middleware"
	"account-dispenser/services"
)

// DispenserHandler adapts HTTP requests to the dispenser call contract.
type DispenserHandler struct {
	d   *services.Dispenser
	log *zap.Logger
}

func NewDispenserHandler(d *services.Dispenser, logger *zap.Logger) *DispenserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispenserHandler{d: d, log: logger.Named("http")}
}

type allocateRequest struct {
	Category string `json:"category"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

type reportRequest struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

type ingestRequest struct {
	Entries []services.IngestEntry `json:"entries"`
}

type quotaResponse struct {
	Used      int64 `json:"used"`
	Limit     int   `json:"limit"`
	Remaining int64 `json:"remaining"`
	Unlimited bool  `json:"unlimited"`
}

func (h *DispenserHandler) Allocate(c *fiber.Ctx) error {
	var req allocateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	alloc, err := h.d.Allocate(middleware.RequesterID(c), req.Category, middleware.Tier(c))
	if err != nil {
		return h.fail(c, err)
	}

	status := fiber.StatusOK
	switch alloc.Outcome {
	case services.OutcomeQuotaExceeded:
		status = fiber.StatusTooManyRequests
	case services.OutcomeOutOfStock:
		status = fiber.StatusNotFound
	}
	return c.Status(status).JSON(alloc)
}

func (h *DispenserHandler) Quota(c *fiber.Ctx) error {
	q, err := h.d.QueryQuota(middleware.RequesterID(c), middleware.Tier(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(quotaResponse{
		Used:      q.Used,
		Limit:     q.Limit,
		Remaining: q.Remaining(),
		Unlimited: q.Unlimited(),
	})
}

func (h *DispenserHandler) Stock(c *fiber.Ctx) error {
	report, err := h.d.QueryStock(c.Query("category"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(report)
}

func (h *DispenserHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.d.Pool.ListCategories()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"categories": cats})
}

func (h *DispenserHandler) CreateReferralCode(c *fiber.Ctx) error {
	code, err := h.d.CreateReferralCode(middleware.RequesterID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"code": code})
}

func (h *DispenserHandler) RedeemReferralCode(c *fiber.Ctx) error {
	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.d.RedeemReferralCode(middleware.RequesterID(c), req.Code); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"redeemed": true})
}

func (h *DispenserHandler) FileReport(c *fiber.Ctx) error {
	var req reportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	report, err := h.d.FileReport(req.RecordID, middleware.RequesterID(c), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *DispenserHandler) Leaderboard(c *fiber.Ctx) error {
	rows, err := h.d.Leaderboard(c.QueryInt("limit", 0))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"day": h.d.Allocator.Today(), "leaders": rows})
}

func (h *DispenserHandler) MyStats(c *fiber.Ctx) error {
	stats, err := h.d.Stats(middleware.RequesterID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}

func (h *DispenserHandler) BoostInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tiers": services.QuotaTable()})
}

// Admin

func (h *DispenserHandler) IngestRecords(c *fiber.Ctx) error {
	var req ingestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	res, err := h.d.Ingest(req.Entries)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (h *DispenserHandler) RemoveRecord(c *fiber.Ctx) error {
	removed, err := h.d.Pool.RemoveRecord(c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (h *DispenserHandler) Restock(c *fiber.Ctx) error {
	restored, err := h.d.Restock()
	if err != nil {
		return h.fail(c, err)
	}
	h.log.Info("🔄 restock via admin API", zap.String("by", middleware.RequesterID(c)), zap.Int64("restored", restored))
	return c.JSON(fiber.Map{"restored": restored})
}

func (h *DispenserHandler) ListReports(c *fiber.Ctx) error {
	rows, err := h.d.Reports.ListGroupedByRecord()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"reports": rows})
}

func (h *DispenserHandler) ClearReports(c *fiber.Ctx) error {
	removed, err := h.d.Reports.Clear(c.Params("record_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (h *DispenserHandler) ClearAllReports(c *fiber.Ctx) error {
	removed, err := h.d.Reports.ClearAll()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (h *DispenserHandler) GlobalStats(c *fiber.Ctx) error {
	stats, err := h.d.GlobalStats()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(stats)
}

// fail maps a service error to a status code.
func (h *DispenserHandler) fail(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	status := fiber.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCode):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrSelfRedemption),
		errors.Is(err, services.ErrAlreadyRedeemed),
		errors.Is(err, services.ErrAlreadyClaimed):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrStorageUnavailable):
		status = fiber.StatusServiceUnavailable
	}
	if status >= fiber.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "storage unavailable"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
