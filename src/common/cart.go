package common

import (
	"context"
	"errors"
	"log"
	"time"

	"ucc/src/config"
	"ucc/src/db"
	"ucc/src/lib"
	"ucc/src/models"
	"ucc/src/types"

	"gorm.io/gorm"
)

// cartWriteGuard rejects cart mutations while a checkout holds the unified
// lock. Reads are never blocked.
func cartWriteGuard(ownerKey string) error {
	held, _ := lib.CartLockHeld(context.Background(), ownerKey, config.CART_LOCK_SCOPE_UNIFIED)
	if held {
		return types.ErrCartLocked
	}
	return nil
}

// AddCartItem appends a line to the owner's cart. A line for a club other
// than the one already in the cart fails with ErrClubMismatch: the caller
// must clear first, the mismatch is never silently merged. An identical
// line (same refs and date) has its quantity bumped instead of duplicating.
func AddCartItem(ownerKey string, params *types.AddCartItemRequestBody) (*models.CartItem, error) {
	if err := cartWriteGuard(ownerKey); err != nil {
		return nil, err
	}
	var date *time.Time
	if params.Date != "" {
		parsed, err := time.Parse(config.DATE_PARSE_FORMAT, params.Date)
		if err != nil {
			return nil, types.ErrInvalidItem
		}
		date = &parsed
	}
	item := models.CartItem{
		OwnerKey:   ownerKey,
		ClubID:     params.ClubID,
		ItemType:   params.ItemType,
		TicketID:   params.TicketID,
		MenuItemID: params.MenuItemID,
		VariantID:  params.VariantID,
		Date:       date,
		Qty:        params.Qty,
	}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing []models.CartItem
		if err := tx.
			Model(&models.CartItem{}).
			Where(&models.CartItem{OwnerKey: ownerKey}).
			Find(&existing).
			Error; err != nil {
			return err
		}
		for _, line := range existing {
			if line.ClubID != params.ClubID {
				return types.ErrClubMismatch
			}
		}

		maxPerPerson, err := validateCartItem(tx, &item)
		if err != nil {
			return err
		}

		if merged := findMergeableLine(existing, &item); merged != nil {
			newQty := merged.Qty + item.Qty
			if maxPerPerson > 0 && newQty > maxPerPerson {
				return types.ErrInvalidItem
			}
			if err := tx.
				Model(&models.CartItem{}).
				Where("id = ?", merged.ID).
				Update("qty", newQty).
				Error; err != nil {
				return err
			}
			item = *merged
			item.Qty = newQty
			return nil
		}

		if maxPerPerson > 0 && item.Qty > maxPerPerson {
			return types.ErrInvalidItem
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// validateCartItem checks the referenced catalog rows are active and the
// club matches, returning the per-person maximum for the line.
func validateCartItem(tx *gorm.DB, item *models.CartItem) (uint, error) {
	switch item.ItemType {
	case types.ITEM_TICKET:
		if item.TicketID == nil || item.Date == nil || item.MenuItemID != nil {
			return 0, types.ErrInvalidItem
		}
		var ticket models.Ticket
		if err := tx.Where("id = ?", *item.TicketID).First(&ticket).Error; err != nil {
			return 0, types.ErrInvalidItem
		}
		if !ticket.Active || ticket.ClubID != item.ClubID {
			return 0, types.ErrInvalidItem
		}
		return ticket.MaxPerPerson, nil
	case types.ITEM_MENU:
		if item.MenuItemID == nil || item.TicketID != nil {
			return 0, types.ErrInvalidItem
		}
		var menuItem models.MenuItem
		if err := tx.Where("id = ?", *item.MenuItemID).First(&menuItem).Error; err != nil {
			return 0, types.ErrInvalidItem
		}
		if !menuItem.Active || menuItem.ClubID != item.ClubID {
			return 0, types.ErrInvalidItem
		}
		if item.VariantID != nil {
			var variant models.MenuItemVariant
			if err := tx.Where("id = ? AND menu_item_id = ?", *item.VariantID, menuItem.ID).First(&variant).Error; err != nil {
				return 0, types.ErrInvalidItem
			}
			if !variant.Active {
				return 0, types.ErrInvalidItem
			}
		}
		return menuItem.MaxPerPerson, nil
	}
	return 0, types.ErrInvalidItem
}

func findMergeableLine(existing []models.CartItem, item *models.CartItem) *models.CartItem {
	for i := range existing {
		line := &existing[i]
		if line.ItemType != item.ItemType {
			continue
		}
		if !uintPtrEqual(line.TicketID, item.TicketID) ||
			!uintPtrEqual(line.MenuItemID, item.MenuItemID) ||
			!uintPtrEqual(line.VariantID, item.VariantID) {
			continue
		}
		if !datePtrEqual(line.Date, item.Date) {
			continue
		}
		return line
	}
	return nil
}

func uintPtrEqual(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func datePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// SetCartItemQty updates a line's quantity; zero removes the line.
func SetCartItemQty(ownerKey string, id uint, qty uint) (*models.CartItem, error) {
	if err := cartWriteGuard(ownerKey); err != nil {
		return nil, err
	}
	if qty == 0 {
		return nil, RemoveCartItem(ownerKey, id)
	}
	var item models.CartItem
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.CartItem{ID: id, OwnerKey: ownerKey}).
			First(&item).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// unknown or foreign line id is a caller mistake
				return types.ErrInvalidItem
			}
			return err
		}
		maxPerPerson, err := validateCartItem(tx, &item)
		if err != nil {
			return err
		}
		if maxPerPerson > 0 && qty > maxPerPerson {
			return types.ErrInvalidItem
		}
		item.Qty = qty
		return tx.
			Model(&models.CartItem{}).
			Where("id = ?", item.ID).
			Update("qty", qty).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func RemoveCartItem(ownerKey string, id uint) error {
	if err := cartWriteGuard(ownerKey); err != nil {
		return err
	}
	db := db.GetDb()
	return db.
		Where(&models.CartItem{ID: id, OwnerKey: ownerKey}).
		Delete(&models.CartItem{}).
		Error
}

func ListCartItems(ownerKey string) ([]models.CartItem, error) {
	var items []models.CartItem
	db := db.GetDb()
	err := db.
		Model(&models.CartItem{}).
		Where(&models.CartItem{OwnerKey: ownerKey}).
		Preload("Ticket").
		Preload("MenuItem").
		Preload("Variant").
		Order("created_at ASC").
		Find(&items).
		Error
	return items, err
}

func ClearCart(ownerKey string) error {
	if err := cartWriteGuard(ownerKey); err != nil {
		return err
	}
	db := db.GetDb()
	return db.
		Where(&models.CartItem{OwnerKey: ownerKey}).
		Delete(&models.CartItem{}).
		Error
}

// SummarizeCart resolves every line's price at call time. Cached prices are
// never trusted; a catalog change shows up on the next summary read.
func SummarizeCart(ownerKey string) (*types.CartSummary, error) {
	summary := types.CartSummary{Lines: []types.CartSummaryLine{}}
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.
			Model(&models.CartItem{}).
			Where(&models.CartItem{OwnerKey: ownerKey}).
			Order("created_at ASC").
			Find(&items).
			Error; err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			price, label, err := ResolveCartItemPrice(tx, item)
			if err != nil {
				log.Printf("Could not resolve price for cart line %d: %s\n", item.ID, err.Error())
				return err
			}
			subtotal := price.EffectivePrice * int64(item.Qty)
			line := types.CartSummaryLine{
				ID:            item.ID,
				ItemType:      item.ItemType,
				Label:         label,
				TicketID:      item.TicketID,
				MenuItemID:    item.MenuItemID,
				VariantID:     item.VariantID,
				Qty:           item.Qty,
				ResolvedPrice: price,
				Subtotal:      subtotal,
			}
			if item.Date != nil {
				line.Date = item.Date.Format(config.DATE_PARSE_FORMAT)
			}
			summary.ClubID = item.ClubID
			summary.Lines = append(summary.Lines, line)
			switch item.ItemType {
			case types.ITEM_TICKET:
				summary.TicketSubtotal += subtotal
			case types.ITEM_MENU:
				summary.MenuSubtotal += subtotal
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	summary.Total = summary.TicketSubtotal + summary.MenuSubtotal
	summary.IsFreeCheckout = summary.Total == 0
	return &summary, nil
}
