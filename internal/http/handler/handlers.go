package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"stashd/internal/balance"
	"stashd/internal/service"
	"stashd/internal/snowflake"
)

const maxIDBatch = 1000

// HealthCheck reports readiness. With a database configured it must be
// reachable; in memory-only mode the process itself is the dependency.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// GetItem serves a single cached value by key. The raw value is the
// response body, with the stored content type.
func GetItem(svc service.CacheService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		item, err := svc.Get(c.UserContext(), key)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrKeyRequired):
				return writeError(c, fiber.StatusBadRequest, "KEY_REQUIRED", "key is required")
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "item not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		c.Set(fiber.HeaderContentType, item.ContentType)
		if !item.ExpiresAt.IsZero() {
			c.Set("X-Expires-At", item.ExpiresAt.UTC().Format(time.RFC3339))
		}
		return c.Status(fiber.StatusOK).Send(item.Value)
	}
}

// PutItem stores the request body under the key. TTL comes from the
// ttl_sec query parameter; zero uses the service default.
func PutItem(svc service.CacheService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		ttlStr := c.Query("ttl_sec", "0")
		ttlSec, err := strconv.Atoi(ttlStr)
		if err != nil || ttlSec < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_TTL", "invalid ttl_sec")
		}

		value := c.Body()
		if len(value) == 0 {
			return writeError(c, fiber.StatusBadRequest, "VALUE_REQUIRED", "request body is required")
		}

		contentType := c.Get(fiber.HeaderContentType)
		item, err := svc.Put(c.UserContext(), key, append([]byte(nil), value...), contentType, time.Duration(ttlSec)*time.Second)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrKeyRequired):
				return writeError(c, fiber.StatusBadRequest, "KEY_REQUIRED", "key is required")
			case errors.Is(err, service.ErrQueueFull):
				return writeError(c, fiber.StatusServiceUnavailable, "QUEUE_FULL", "write-behind queue is full, retry later")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(item)
	}
}

// DeleteItem removes a key.
func DeleteItem(svc service.CacheService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")
		if err := svc.Delete(c.UserContext(), key); err != nil {
			switch {
			case errors.Is(err, service.ErrKeyRequired):
				return writeError(c, fiber.StatusBadRequest, "KEY_REQUIRED", "key is required")
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "item not found")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListItems pages through persisted items.
func ListItems(svc service.CacheService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			if errors.Is(err, service.ErrNoPersistence) {
				return writeError(c, fiber.StatusNotImplemented, "NO_PERSISTENCE", "no database configured")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// mintResponse is the body returned by MintIDs.
type mintResponse struct {
	IDs []snowflake.ID `json:"ids"`
}

// MintIDs returns count freshly generated snowflake IDs.
func MintIDs(gen *snowflake.Generator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := strconv.Atoi(c.Query("count", "1"))
		if err != nil || count < 1 || count > maxIDBatch {
			return writeError(c, fiber.StatusBadRequest, "INVALID_COUNT", "count must be between 1 and 1000")
		}

		ids, err := gen.NextBatch(count)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(mintResponse{IDs: ids})
	}
}

// DecomposeID splits an ID back into timestamp, node, and sequence.
func DecomposeID(gen *snowflake.Generator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || raw < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		return c.JSON(gen.Decompose(snowflake.ID(raw)))
	}
}

// GetStats reports cache counters, per-shard figures, and hot keys.
func GetStats(svc service.CacheService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(svc.Stats())
	}
}

// ListOrigins reports origin health as seen by the monitor. Without
// configured origins the list is empty.
func ListOrigins(monitor *balance.Monitor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if monitor == nil {
			return c.JSON([]balance.OriginStatus{})
		}
		return c.JSON(monitor.Statuses())
	}
}

// TriggerSnapshot uploads a snapshot on demand.
func TriggerSnapshot(snap *service.Snapshotter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if snap == nil {
			return writeError(c, fiber.StatusNotImplemented, "NO_SNAPSHOTS", "object storage not configured")
		}
		info, err := snap.Snapshot(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"object_key": info.Key,
			"size":       info.Size,
		})
	}
}
