package common

import (
	"fmt"
	"math"
	"time"

	"ucc/src/config"
	"ucc/src/models"
	"ucc/src/types"

	"gorm.io/gorm"
)

// ResolveTicketPrice computes the effective unit price of a ticket for a
// target date. Precedence: event-day price, then grace-window surcharge,
// then base. Pure over the supplied rows.
func ResolveTicketPrice(ticket *models.Ticket, event *models.ClubEvent, date time.Time) types.ResolvedPrice {
	price := types.ResolvedPrice{BasePrice: ticket.Price, EffectivePrice: ticket.Price}
	if event == nil || !event.Active {
		return price
	}
	if sameDay(event.Date, date) {
		if event.TicketPrice != nil {
			dynamic := *event.TicketPrice
			price.DynamicPrice = &dynamic
			price.EffectivePrice = dynamic
		}
		return price
	}
	if withinGraceWindow(event, date) && event.GraceMultiplier > 1 {
		dynamic := int64(math.Round(float64(ticket.Price) * event.GraceMultiplier))
		price.DynamicPrice = &dynamic
		price.EffectivePrice = dynamic
	}
	return price
}

// ResolveMenuPrice computes the effective unit price of a menu item or
// variant. Dynamic pricing applies only when enabled on the item, a date is
// supplied, and that date is an event day with an event price configured.
func ResolveMenuPrice(item *models.MenuItem, variant *models.MenuItemVariant, event *models.ClubEvent, date *time.Time) types.ResolvedPrice {
	base := item.Price
	if variant != nil && variant.Price != nil {
		base = *variant.Price
	}
	price := types.ResolvedPrice{BasePrice: base, EffectivePrice: base}
	if !item.DynamicPricing || date == nil || event == nil || !event.Active {
		return price
	}
	if sameDay(event.Date, *date) && item.EventPrice != nil {
		dynamic := *item.EventPrice
		price.DynamicPrice = &dynamic
		price.EffectivePrice = dynamic
	}
	return price
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// withinGraceWindow reports whether date falls strictly before the event
// and inside its configured grace window.
func withinGraceWindow(event *models.ClubEvent, date time.Time) bool {
	if event.GraceDays == 0 || !date.Before(event.Date) {
		return false
	}
	windowStart := event.Date.AddDate(0, 0, -int(event.GraceDays))
	return !date.Before(windowStart)
}

// findEventFor returns the next active event for the club on or after the
// date, so the resolver can decide between event-day and grace pricing.
func findEventFor(tx *gorm.DB, clubId uint, date time.Time) (*models.ClubEvent, error) {
	var event models.ClubEvent
	err := tx.
		Model(&models.ClubEvent{}).
		Where("club_id = ? AND active = ? AND date >= ?", clubId, true, date.Truncate(24*time.Hour)).
		Order("date ASC").
		First(&event).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ResolveCartItemPrice loads the catalog rows a cart line references and
// resolves its price. The label is what lands in snapshots and on gateway
// line items.
func ResolveCartItemPrice(tx *gorm.DB, item *models.CartItem) (types.ResolvedPrice, string, error) {
	switch item.ItemType {
	case types.ITEM_TICKET:
		if item.TicketID == nil || item.Date == nil {
			return types.ResolvedPrice{}, "", types.ErrInvalidItem
		}
		var ticket models.Ticket
		if err := tx.Where("id = ?", *item.TicketID).First(&ticket).Error; err != nil {
			return types.ResolvedPrice{}, "", types.ErrInvalidItem
		}
		event, err := findEventFor(tx, ticket.ClubID, *item.Date)
		if err != nil {
			return types.ResolvedPrice{}, "", err
		}
		label := fmt.Sprintf("%s (%s)", ticket.Name, item.Date.Format(config.DATE_PARSE_FORMAT))
		return ResolveTicketPrice(&ticket, event, *item.Date), label, nil
	case types.ITEM_MENU:
		if item.MenuItemID == nil {
			return types.ResolvedPrice{}, "", types.ErrInvalidItem
		}
		var menuItem models.MenuItem
		if err := tx.Where("id = ?", *item.MenuItemID).First(&menuItem).Error; err != nil {
			return types.ResolvedPrice{}, "", types.ErrInvalidItem
		}
		var variant *models.MenuItemVariant
		if item.VariantID != nil {
			var v models.MenuItemVariant
			if err := tx.Where("id = ? AND menu_item_id = ?", *item.VariantID, menuItem.ID).First(&v).Error; err != nil {
				return types.ResolvedPrice{}, "", types.ErrInvalidItem
			}
			variant = &v
		}
		var event *models.ClubEvent
		if menuItem.DynamicPricing && item.Date != nil {
			ev, err := findEventFor(tx, menuItem.ClubID, *item.Date)
			if err != nil {
				return types.ResolvedPrice{}, "", err
			}
			event = ev
		}
		label := menuItem.Name
		if variant != nil {
			label = fmt.Sprintf("%s (%s)", menuItem.Name, variant.Name)
		}
		return ResolveMenuPrice(&menuItem, variant, event, item.Date), label, nil
	}
	return types.ResolvedPrice{}, "", types.ErrInvalidItem
}
