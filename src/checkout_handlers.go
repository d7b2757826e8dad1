package main

import (
	"context"
	"io"
	"log"
	"net/http"

	"ucc/src/common"
	"ucc/src/config"
	"ucc/src/db"
	"ucc/src/lib"
	"ucc/src/models"
	"ucc/src/types"
	"ucc/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func checkoutHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/checkout", func(ctx *gin.Context) {
			var body types.InitiateCheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerKey := ctx.GetString("ownerKey")
			result, err := common.InitiateCheckout(ownerKey, &body)
			if err != nil {
				log.Printf("Error on checkout for %s: %s\n", ownerKey, err.Error())
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": result})
		}).
		POST("/checkout/confirm", func(ctx *gin.Context) {
			var body types.ConfirmCheckoutRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			txn, err := common.ConfirmCheckout(&body)
			if err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": txn})
		}).
		GET("/checkout/status/:id", func(ctx *gin.Context) {
			var params types.TransactionURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := uuid.Parse(params.ID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			txn, err := common.GetTransaction(id)
			if err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"data": gin.H{
					"transaction_id": txn.ID.String(),
					"status":         txn.Status,
					"finalized_at":   txn.FinalizedAt,
				},
			})
		}).
		GET("/sse/transactions/:id", func(ctx *gin.Context) {
			var params types.TransactionURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			id, err := uuid.Parse(params.ID)
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			txn, err := common.GetTransaction(id)
			if err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Writer.Header().Set("Content-Type", "text/event-stream")
			ctx.Writer.Header().Set("Cache-Control", "no-cache")
			ctx.Writer.Header().Set("Connection", "keep-alive")
			// replay current state first so a late subscriber never hangs on
			// a transaction that already settled
			ctx.SSEvent("status", gin.H{"transaction_id": txn.ID.String(), "status": txn.Status})
			ctx.Writer.Flush()
			if txn.Status.Terminal() {
				return
			}
			pubsub, events := lib.SubscribeTransactionStatus(ctx.Request.Context(), params.ID)
			defer pubsub.Close()
			// the transaction may have settled between the replay above and
			// the subscribe; re-read once so that publish is never missed
			if current, err := common.GetTransaction(id); err == nil && current.Status.Terminal() {
				ctx.SSEvent("status", gin.H{"transaction_id": current.ID.String(), "status": current.Status})
				ctx.Writer.Flush()
				return
			}
			ctx.Stream(func(w io.Writer) bool {
				select {
				case ev, ok := <-events:
					if !ok {
						return false
					}
					ctx.SSEvent("status", ev)
					return !ev.Status.Terminal()
				case <-ctx.Request.Context().Done():
					return false
				}
			})
		}).
		GET("/purchases", func(ctx *gin.Context) {
			ownerKey := ctx.GetString("ownerKey")
			db := db.GetDb()
			var tickets []models.TicketPurchase
			if err := db.
				Model(&models.TicketPurchase{}).
				Where(&models.TicketPurchase{OwnerKey: ownerKey}).
				Preload("Ticket").
				Order("created_at DESC").
				Find(&tickets).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			var menu []models.MenuPurchase
			if err := db.
				Model(&models.MenuPurchase{}).
				Where(&models.MenuPurchase{OwnerKey: ownerKey}).
				Preload("MenuItem").
				Order("created_at DESC").
				Find(&menu).
				Error; err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": gin.H{"tickets": tickets, "menu": menu}})
		}).
		GET("/purchases/tickets/:id/qr", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerKey := ctx.GetString("ownerKey")
			db := db.GetDb()
			var purchase models.TicketPurchase
			if err := db.
				Where(&models.TicketPurchase{ID: params.ID, OwnerKey: ownerKey}).
				First(&purchase).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "purchase not found"})
				return
			}
			path, err := utils.GenerateAdmissionQR(purchase.AdmissionCode)
			if err != nil {
				log.Printf("Error generating QR for purchase %d: %s\n", purchase.ID, err.Error())
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate code"})
				return
			}
			ctx.File(path)
		})
	return g
}

func adminHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/debug/unlock-cart", func(ctx *gin.Context) {
			var body types.UnlockCartRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if err := lib.ForceUnlockCart(context.Background(), body.OwnerKey, config.CART_LOCK_SCOPE_UNIFIED, "admin"); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"unlocked": true})
		})
	return g
}
