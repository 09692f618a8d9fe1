package server

import (
	"context"
	"log/slog"
	"strings"

	"hongdating/internal/middleware"
	"hongdating/internal/models"
	"hongdating/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "userID"
	localClaims = "claims"
)

// AuthRequired returns the authentication middleware. A websocket ticket in
// the query wins; otherwise a Bearer token is required. Tokens are never
// read from the query string.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ticket := c.Query("ticket"); ticket != "" {
			userID, err := s.authService.RedeemTicket(c.UserContext(), ticket)
			if err != nil {
				return models.RespondWithAppError(c, err)
			}
			setUser(c, userID, nil)
			return c.Next()
		}

		tokenString := bearerToken(c.Get(fiber.HeaderAuthorization))
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.ParseToken(tokenString)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if s.authService.IsRevoked(c.UserContext(), claims.JTI) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		setUser(c, claims.UserID, claims)
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// setUser stores the caller in locals and in the user context so service
// logs carry the id.
func setUser(c *fiber.Ctx, userID uint, claims *service.Claims) {
	c.Locals(localUserID, userID)
	if claims != nil {
		c.Locals(localClaims, claims)
	}
	c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

func currentClaims(c *fiber.Ctx) *service.Claims {
	claims, _ := c.Locals(localClaims).(*service.Claims)
	return claims
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.isAdminByUserID(c.UserContext(), currentUserID(c))
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// MaintenanceGuard answers 503 on /api while maintenance is on. Status,
// admin and docs stay reachable.
func (s *Server) MaintenanceGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.flagService.InMaintenance() || maintenanceExempt(c.Path()) {
			return c.Next()
		}
		st := s.flagService.Status()
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewMaintenanceError(st.Message))
	}
}

func maintenanceExempt(path string) bool {
	for _, prefix := range []string{"/api/app/status", "/api/admin", "/api/swagger", "/api/metrics"} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return path == "/api" || path == "/api/"
}

// TrackActivity records the caller as active today. Failures are logged and
// never fail the request.
func (s *Server) TrackActivity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := s.activityService.Record(c.UserContext(), currentUserID(c)); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "activity record failed",
				slog.String("error", err.Error()))
		}
		return c.Next()
	}
}
