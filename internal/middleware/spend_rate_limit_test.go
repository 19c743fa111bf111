package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestSpendRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/spend", Actor(testSecret), SpendRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(customerID string) int {
		req := httptest.NewRequest(fiber.MethodPost, "/spend", nil)
		req.Header.Set(fiber.HeaderAuthorization, bearer(t, customerID))
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if status := send("c1"); status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, status)
		}
	}
	if status := send("c1"); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	if status := send("c2"); status != fiber.StatusOK {
		t.Fatalf("other actors are not limited, got %d", status)
	}

	mr.FastForward(61 * time.Second)
	if status := send("c1"); status != fiber.StatusOK {
		t.Fatalf("expected window reset, got %d", status)
	}
}
