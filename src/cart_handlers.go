package main

import (
	"errors"
	"log"
	"net/http"

	"ucc/src/common"
	"ucc/src/types"

	"github.com/gin-gonic/gin"
)

func cartHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		POST("/cart/items", func(ctx *gin.Context) {
			var body types.AddCartItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerKey := ctx.GetString("ownerKey")
			item, err := common.AddCartItem(ownerKey, &body)
			if err != nil {
				log.Printf("Error adding cart item for %s: %s\n", ownerKey, err.Error())
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"data": item})
		}).
		GET("/cart/items", func(ctx *gin.Context) {
			ownerKey := ctx.GetString("ownerKey")
			items, err := common.ListCartItems(ownerKey)
			if err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": items})
		}).
		GET("/cart/summary", func(ctx *gin.Context) {
			ownerKey := ctx.GetString("ownerKey")
			summary, err := common.SummarizeCart(ownerKey)
			if err != nil {
				if errors.Is(err, types.ErrInvalidItem) {
					// a line went stale between add and summary
					ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
					return
				}
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": summary})
		}).
		PATCH("/cart/items/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var body types.UpdateCartItemRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerKey := ctx.GetString("ownerKey")
			item, err := common.SetCartItemQty(ownerKey, params.ID, *body.Qty)
			if err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			if item == nil {
				ctx.JSON(http.StatusOK, gin.H{"data": nil, "removed": true})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": item})
		}).
		DELETE("/cart/items/:id", func(ctx *gin.Context) {
			var params types.SimpleRequestParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			ownerKey := ctx.GetString("ownerKey")
			if err := common.RemoveCartItem(ownerKey, params.ID); err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		}).
		DELETE("/cart", func(ctx *gin.Context) {
			ownerKey := ctx.GetString("ownerKey")
			if err := common.ClearCart(ownerKey); err != nil {
				ctx.JSON(types.ErrorStatusCode(err), gin.H{"error": err.Error()})
				return
			}
			ctx.Status(http.StatusNoContent)
		})
	return g
}
