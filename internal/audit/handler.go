package audit

import (
	"fmt"

	"alquileres-backend/internal/database"
	"alquileres-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/audit-logs?entity_type=&page=&page_size=  (solo admin)
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := 1
		pageSize := 50

		if p := c.Query("page"); p != "" {
			if _, err := fmt.Sscan(p, &page); err != nil || page < 1 {
				return fiber.NewError(fiber.StatusBadRequest, "page inválido")
			}
		}
		if ps := c.Query("page_size"); ps != "" {
			if _, err := fmt.Sscan(ps, &pageSize); err != nil || pageSize < 1 || pageSize > 200 {
				return fiber.NewError(fiber.StatusBadRequest, "page_size inválido")
			}
		}

		q := database.DB.Model(&models.AuditLog{})
		if et := c.Query("entity_type"); et != "" {
			q = q.Where("entity_type = ?", et)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron contar los registros")
		}

		var logs []models.AuditLog
		if err := q.Order("id desc").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los registros")
		}

		return c.JSON(fiber.Map{
			"items":     logs,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		})
	}
}
