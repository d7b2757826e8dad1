package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"

	"ucc/src/common"
	"ucc/src/lib"
	"ucc/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func gatewayWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/payments", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.Status(http.StatusBadRequest)
			return
		}
		log.Printf("[GatewayEvent] %s %s\n", event.ID, event.Type)

		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			log.Printf("[Gateway] Error parsing CheckoutSession: %s\n", err.Error())
			ctx.Status(http.StatusOK)
			return
		}
		status, relevant := lib.MapWebhookEventStatus(string(event.Type), string(cs.PaymentStatus))
		if !relevant {
			ctx.Status(http.StatusOK)
			return
		}
		err = common.HandleGatewayEvent(&common.GatewayEvent{
			ProviderEventID:       event.ID,
			ProviderTransactionID: cs.ID,
			EventType:             string(event.Type),
			Status:                status,
			Payload: types.JSONB{
				"session_status": string(cs.Status),
				"payment_status": string(cs.PaymentStatus),
				"request_id":     cs.Metadata["requestId"],
			},
		})
		if err != nil {
			if errors.Is(err, types.ErrUnknownTransaction) {
				// not ours; acknowledge so the provider stops retrying
				log.Printf("[Gateway] No transaction for session %s\n", cs.ID)
				ctx.Status(http.StatusOK)
				return
			}
			// a rollback: signal retry so the delivery is reprocessed
			log.Printf("[Gateway] Error handling event %s: %s\n", event.ID, err.Error())
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.Status(http.StatusOK)
	})
	return apiv1
}
