package common

import (
	"time"

	"ucc/src/config"
	"ucc/src/models"
)

func (s *CommonTestSuite) TestResolveTicketPrice() {
	s.Run("base price when no event is near", func() {
		price := ResolveTicketPrice(&s.Ticket, nil, dateOnly(time.Now()))
		s.Equal(int64(50000), price.EffectivePrice)
		s.Nil(price.DynamicPrice)
	})

	s.Run("event day uses the event price", func() {
		price := ResolveTicketPrice(&s.Ticket, &s.Event, s.Event.Date)
		s.Equal(int64(80000), price.EffectivePrice)
		s.NotNil(price.DynamicPrice)
		s.Equal(int64(50000), price.BasePrice)
	})

	s.Run("grace window applies the surcharge multiplier", func() {
		date := s.Event.Date.AddDate(0, 0, -2)
		price := ResolveTicketPrice(&s.Ticket, &s.Event, date)
		s.Equal(int64(75000), price.EffectivePrice)
	})

	s.Run("outside the grace window stays at base", func() {
		date := s.Event.Date.AddDate(0, 0, -4)
		price := ResolveTicketPrice(&s.Ticket, &s.Event, date)
		s.Equal(int64(50000), price.EffectivePrice)
		s.Nil(price.DynamicPrice)
	})

	s.Run("inactive event never changes the price", func() {
		inactive := s.Event
		inactive.Active = false
		price := ResolveTicketPrice(&s.Ticket, &inactive, s.Event.Date)
		s.Equal(int64(50000), price.EffectivePrice)
	})
}

func (s *CommonTestSuite) TestResolveMenuPrice() {
	s.Run("base price without a date", func() {
		price := ResolveMenuPrice(&s.Menu, nil, &s.Event, nil)
		s.Equal(int64(30000), price.EffectivePrice)
	})

	s.Run("event day applies the event price", func() {
		date := s.Event.Date
		price := ResolveMenuPrice(&s.Menu, nil, &s.Event, &date)
		s.Equal(int64(12000), price.EffectivePrice)
		s.NotNil(price.DynamicPrice)
	})

	s.Run("variant price overrides the base", func() {
		price := ResolveMenuPrice(&s.Menu, &s.Variant, nil, nil)
		s.Equal(int64(35000), price.EffectivePrice)
	})

	s.Run("dynamic pricing off ignores the event", func() {
		static := s.Menu
		static.DynamicPricing = false
		date := s.Event.Date
		price := ResolveMenuPrice(&static, nil, &s.Event, &date)
		s.Equal(int64(30000), price.EffectivePrice)
	})

	s.Run("non event day keeps the base", func() {
		date := s.Event.Date.AddDate(0, 0, -1)
		price := ResolveMenuPrice(&s.Menu, nil, &s.Event, &date)
		s.Equal(int64(30000), price.EffectivePrice)
	})
}

func (s *CommonTestSuite) TestWithinGraceWindow() {
	event := models.ClubEvent{Date: dateOnly(time.Now().AddDate(0, 0, 10)), GraceDays: 3}

	s.True(withinGraceWindow(&event, event.Date.AddDate(0, 0, -1)))
	s.True(withinGraceWindow(&event, event.Date.AddDate(0, 0, -3)))
	s.False(withinGraceWindow(&event, event.Date.AddDate(0, 0, -4)))
	s.False(withinGraceWindow(&event, event.Date))
	s.False(withinGraceWindow(&event, event.Date.AddDate(0, 0, 1)))

	noGrace := models.ClubEvent{Date: event.Date, GraceDays: 0}
	s.False(withinGraceWindow(&noGrace, event.Date.AddDate(0, 0, -1)))
}

func (s *CommonTestSuite) TestResolveCartItemPrice() {
	date := s.Event.Date
	item := models.CartItem{
		OwnerKey: "user:42",
		ClubID:   s.Club.ID,
		ItemType: "ticket",
		TicketID: &s.Ticket.ID,
		Date:     &date,
		Qty:      2,
	}
	price, label, err := ResolveCartItemPrice(s.DB, &item)
	s.NoError(err)
	s.Equal(int64(80000), price.EffectivePrice)
	s.Contains(label, "General")
	s.Contains(label, date.Format(config.DATE_PARSE_FORMAT))
}
