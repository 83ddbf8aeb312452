package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MartinWeidner/CourseFox/app/models"
	"github.com/MartinWeidner/CourseFox/internal/pkg/database"
	"github.com/MartinWeidner/CourseFox/internal/pkg/env"
	"github.com/MartinWeidner/CourseFox/internal/pkg/reconcile"
)

// HandlePaymentWebhook receives provider-signed checkout events. The response
// contract follows the provider's retry semantics: 200 once the event reached
// a terminal or stable pending state, non-2xx when the delivery should be
// retried.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Payment-Signature"))
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")

	// The signature gate comes before any write so a forged delivery can
	// never occupy an event id in the dedup table.
	if !reconcile.VerifyWebhookSignature(rawBody, signature, secret) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := reconcile.ParseCheckoutEvent(rawBody)
	if err != nil {
		log.Printf("payment webhook: rejected malformed payload: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pipeline := reconcile.NewPipelineFromDB(database.GetDB())
	result, err := pipeline.Process(ctx, event, rawBody)
	if err != nil {
		log.Printf("payment webhook: transient failure for %s: %v", event.EventID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	switch result.Outcome {
	case reconcile.OutcomeDeduplicated:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case models.EventOutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	case models.EventOutcomeUnresolved, models.EventOutcomeConflict:
		// Stable pending state: acknowledged so the provider stops
		// retrying; the event stays in the operator queue.
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "pending": result.Outcome})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "created": result.GrantCreated})
	}
}
