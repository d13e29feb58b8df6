// middleware/auth.go
package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"account-dispenser/services"
)

const (
	LocalRequesterID = "requester_id"
	LocalRoles       = "user_roles"
	LocalTier        = "tier"

	StaffRole = "staff"
)

// UserContextMiddleware reads the identity headers the gateway sets and
// stores the requester id, roles and tier signal in locals.
func UserContextMiddleware(logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("user_ctx")

	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("❌ X-User-ID missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through gateway with auth context",
			})
		}

		boost := 0
		if raw := strings.TrimSpace(c.Get("X-Boost-Count")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "X-Boost-Count must be a non-negative integer",
				})
			}
			boost = n
		}

		roles := parseRoles(c.Get("X-User-Roles"))
		tier := services.TierSignal{BoostCount: boost, IsStaff: hasRole(roles, StaffRole)}

		c.Locals(LocalRequesterID, userID)
		c.Locals(LocalRoles, roles)
		c.Locals(LocalTier, tier)

		log.Debug("👤 user context",
			zap.String("user_id", userID),
			zap.Strings("roles", roles),
			zap.Int("boost_count", boost),
			zap.String("path", c.Path()))
		return c.Next()
	}
}

// RequireStaff rejects requests whose roles do not include staff.
// It must run after UserContextMiddleware.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Tier(c).IsStaff {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "staff role required",
			})
		}
		return c.Next()
	}
}

func RequesterID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalRequesterID).(string)
	return id
}

func Tier(c *fiber.Ctx) services.TierSignal {
	tier, _ := c.Locals(LocalTier).(services.TierSignal)
	return tier
}

func parseRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
