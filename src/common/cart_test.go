package common

import (
	"encoding/json"
	"time"

	"ucc/src/config"
	"ucc/src/lib"
	"ucc/src/models"
	"ucc/src/types"
)

const testOwner = "user:7"

func (s *CommonTestSuite) addTicketLine(owner string, ticketId uint, date time.Time, qty uint) *models.CartItem {
	item, err := AddCartItem(owner, &types.AddCartItemRequestBody{
		ClubID:   s.Club.ID,
		ItemType: types.ITEM_TICKET,
		TicketID: &ticketId,
		Date:     date.Format(config.DATE_PARSE_FORMAT),
		Qty:      qty,
	})
	s.Require().NoError(err)
	return item
}

func (s *CommonTestSuite) addMenuLine(owner string, qty uint, variantId *uint) *models.CartItem {
	item, err := AddCartItem(owner, &types.AddCartItemRequestBody{
		ClubID:     s.Club.ID,
		ItemType:   types.ITEM_MENU,
		MenuItemID: &s.Menu.ID,
		VariantID:  variantId,
		Qty:        qty,
	})
	s.Require().NoError(err)
	return item
}

func (s *CommonTestSuite) TestAddCartItem() {
	s.Run("adds a ticket line", func() {
		item := s.addTicketLine(testOwner, s.Ticket.ID, s.Event.Date, 2)
		s.NotZero(item.ID)
		s.Equal(uint(2), item.Qty)
	})

	s.Run("identical line merges instead of duplicating", func() {
		s.addTicketLine(testOwner, s.Ticket.ID, s.Event.Date, 1)
		items, err := ListCartItems(testOwner)
		s.NoError(err)
		s.Len(items, 1)
		s.Equal(uint(3), items[0].Qty)
	})

	s.Run("rejects a quantity above the per person maximum", func() {
		_, err := AddCartItem(testOwner, &types.AddCartItemRequestBody{
			ClubID:   s.Club.ID,
			ItemType: types.ITEM_TICKET,
			TicketID: &s.Ticket.ID,
			Date:     s.Event.Date.Format(config.DATE_PARSE_FORMAT),
			Qty:      20,
		})
		s.ErrorIs(err, types.ErrInvalidItem)
	})

	s.Run("rejects a ticket without a date", func() {
		_, err := AddCartItem(testOwner, &types.AddCartItemRequestBody{
			ClubID:   s.Club.ID,
			ItemType: types.ITEM_TICKET,
			TicketID: &s.Ticket.ID,
			Qty:      1,
		})
		s.ErrorIs(err, types.ErrInvalidItem)
	})

	s.Run("rejects a line for another club", func() {
		other := models.Club{Name: "Club Dos", Country: "CL"}
		s.Require().NoError(s.DB.Create(&other).Error)
		otherTicket := models.Ticket{ClubID: other.ID, Name: "VIP", Price: 90000, MaxPerPerson: 5, Active: true}
		s.Require().NoError(s.DB.Create(&otherTicket).Error)

		_, err := AddCartItem(testOwner, &types.AddCartItemRequestBody{
			ClubID:   other.ID,
			ItemType: types.ITEM_TICKET,
			TicketID: &otherTicket.ID,
			Date:     s.Event.Date.Format(config.DATE_PARSE_FORMAT),
			Qty:      1,
		})
		s.ErrorIs(err, types.ErrClubMismatch)
	})

	s.Run("rejects an inactive item", func() {
		inactive := models.Ticket{ClubID: s.Club.ID, Name: "Retired", Price: 1000, Active: false}
		s.Require().NoError(s.DB.Create(&inactive).Error)
		_, err := AddCartItem(testOwner, &types.AddCartItemRequestBody{
			ClubID:   s.Club.ID,
			ItemType: types.ITEM_TICKET,
			TicketID: &inactive.ID,
			Date:     s.Event.Date.Format(config.DATE_PARSE_FORMAT),
			Qty:      1,
		})
		s.ErrorIs(err, types.ErrInvalidItem)
	})
}

func (s *CommonTestSuite) TestSetCartItemQty() {
	item := s.addMenuLine(testOwner, 2, nil)

	updated, err := SetCartItemQty(testOwner, item.ID, 5)
	s.NoError(err)
	s.Equal(uint(5), updated.Qty)

	removed, err := SetCartItemQty(testOwner, item.ID, 0)
	s.NoError(err)
	s.Nil(removed)

	items, err := ListCartItems(testOwner)
	s.NoError(err)
	s.Empty(items)

	s.Run("unknown line id is a client error", func() {
		_, err := SetCartItemQty(testOwner, 424242, 3)
		s.ErrorIs(err, types.ErrInvalidItem)
		s.Equal(400, types.ErrorStatusCode(err))
	})

	s.Run("another owner's line id is a client error", func() {
		foreign := s.addMenuLine("user:someone-else", 1, nil)
		_, err := SetCartItemQty(testOwner, foreign.ID, 3)
		s.ErrorIs(err, types.ErrInvalidItem)
		s.Equal(400, types.ErrorStatusCode(err))
	})
}

func (s *CommonTestSuite) TestCartWritesBlockedWhileLocked() {
	lock := lib.CartLock{OwnerKey: testOwner, Scope: config.CART_LOCK_SCOPE_UNIFIED, Token: "t", HeldSince: time.Now().UTC()}
	payload, _ := json.Marshal(&lock)
	key := "cartlock:" + testOwner + ":" + config.CART_LOCK_SCOPE_UNIFIED
	s.RedisMock.ExpectGet(key).SetVal(string(payload))

	_, err := AddCartItem(testOwner, &types.AddCartItemRequestBody{
		ClubID:     s.Club.ID,
		ItemType:   types.ITEM_MENU,
		MenuItemID: &s.Menu.ID,
		Qty:        1,
	})
	s.ErrorIs(err, types.ErrCartLocked)
	s.Equal(423, types.ErrorStatusCode(err))
}

func (s *CommonTestSuite) TestSummarizeCart() {
	owner := "user:summary"
	s.addTicketLine(owner, s.Ticket.ID, s.Event.Date, 2)
	s.addMenuLine(owner, 1, nil)

	summary, err := SummarizeCart(owner)
	s.NoError(err)
	s.Equal(s.Club.ID, summary.ClubID)
	s.Len(summary.Lines, 2)
	// 2 x 80000 event-day tickets plus one menu item at base price
	s.Equal(int64(160000), summary.TicketSubtotal)
	s.Equal(int64(30000), summary.MenuSubtotal)
	s.Equal(int64(190000), summary.Total)
	s.False(summary.IsFreeCheckout)
}

func (s *CommonTestSuite) TestSummarizeFreeCart() {
	owner := "user:freelist"
	s.addTicketLine(owner, s.Free.ID, s.Event.Date.AddDate(0, 0, 30), 2)

	summary, err := SummarizeCart(owner)
	s.NoError(err)
	s.Equal(int64(0), summary.Total)
	s.True(summary.IsFreeCheckout)
}
