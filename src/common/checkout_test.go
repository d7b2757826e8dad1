package common

import (
	"time"

	"ucc/src/config"
	"ucc/src/models"
	"ucc/src/types"

	"github.com/google/uuid"
)

func (s *CommonTestSuite) expectLockAcquired() {
	s.RedisMock.Regexp().
		ExpectSetNX(`cartlock:.*`, `.*`, config.CartLockTTL()).
		SetVal(true)
}

func (s *CommonTestSuite) expectLockBusy() {
	s.RedisMock.Regexp().
		ExpectSetNX(`cartlock:.*`, `.*`, config.CartLockTTL()).
		SetVal(false)
}

func (s *CommonTestSuite) expectLockReleased(owner string) {
	s.RedisMock.
		ExpectDel("cartlock:" + owner + ":" + config.CART_LOCK_SCOPE_UNIFIED).
		SetVal(1)
}

func (s *CommonTestSuite) TestFreeCheckoutBypassesLockAndGateway() {
	owner := "user:free"
	s.addTicketLine(owner, s.Free.ID, s.Event.Date.AddDate(0, 0, 30), 2)

	result, err := InitiateCheckout(owner, &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
	s.NoError(err)
	s.Equal(types.TRANSACTION_APPROVED, result.Status)
	s.False(result.RequiresRedirect)
	s.Zero(s.Gateway.StartCalls)

	var txn models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", result.TransactionID).First(&txn).Error)
	s.Equal(types.TRANSACTION_APPROVED, txn.Status)
	s.Equal("none", txn.PaymentProvider)
	s.NotNil(txn.FinalizedAt)
	s.Equal(int64(0), txn.TotalPaid)

	var purchases []models.TicketPurchase
	s.Require().NoError(s.DB.Where("transaction_id = ?", txn.ID).Find(&purchases).Error)
	s.Len(purchases, 1)
	s.Equal(uint(2), purchases[0].Qty)
	s.NotEmpty(purchases[0].AdmissionCode)

	items, err := ListCartItems(owner)
	s.NoError(err)
	s.Empty(items)
}

func (s *CommonTestSuite) TestPaidCheckoutLocksAndRedirects() {
	owner := "user:paid"
	s.addTicketLine(owner, s.Ticket.ID, s.Event.Date, 2)

	s.expectLockAcquired()
	result, err := InitiateCheckout(owner, &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
	s.NoError(err)
	s.Equal(types.TRANSACTION_PENDING, result.Status)
	s.True(result.RequiresRedirect)
	s.Equal("https://pay.example.com/session", result.RedirectURL)

	var txn models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", result.TransactionID).First(&txn).Error)
	s.Equal(types.TRANSACTION_PENDING, txn.Status)
	s.Equal("fake", txn.PaymentProvider)
	s.Require().NotNil(txn.ProviderTransactionID)
	s.Equal(int64(160000), txn.TotalPaid)

	// the cart survives until the payment settles
	items, err := ListCartItems(owner)
	s.NoError(err)
	s.Len(items, 1)

	s.Run("second checkout while locked gets 423", func() {
		s.expectLockBusy()
		_, err := InitiateCheckout(owner, &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
		s.ErrorIs(err, types.ErrAlreadyLocked)
		s.Equal(423, types.ErrorStatusCode(err))
	})
}

func (s *CommonTestSuite) TestSnapshotDerivedFromSummary() {
	owner := "user:snapshot"
	s.addTicketLine(owner, s.Ticket.ID, s.Event.Date, 2)
	s.addMenuLine(owner, 1, &s.Variant.ID)

	summary, err := SummarizeCart(owner)
	s.Require().NoError(err)

	// cart mutations after the summary read cannot leak into the freeze:
	// the snapshot comes from the summary's lines, not a second read
	s.Require().NoError(s.DB.Where(&models.CartItem{OwnerKey: owner}).Delete(&models.CartItem{}).Error)

	snapshot := buildSnapshot(summary)
	s.Require().Len(snapshot, 2)
	var total int64
	for _, line := range snapshot {
		total += line.Subtotal
	}
	s.Equal(summary.Total, total)
	s.Equal(s.Ticket.ID, snapshot[0].TicketID)
	s.Equal(s.Menu.ID, snapshot[1].MenuItemID)
	s.Require().NotNil(snapshot[1].VariantID)
	s.Equal(s.Variant.ID, *snapshot[1].VariantID)
}

func (s *CommonTestSuite) TestEmptyCartCheckout() {
	_, err := InitiateCheckout("user:nobody", &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
	s.ErrorIs(err, types.ErrEmptyCart)
	s.Equal(400, types.ErrorStatusCode(err))
}

func (s *CommonTestSuite) TestGatewayFaultYieldsErrorTransaction() {
	owner := "user:fault"
	s.addMenuLine(owner, 1, nil)
	s.Gateway.StartErr = types.ErrGatewayUnavailable

	s.expectLockAcquired()
	result, err := InitiateCheckout(owner, &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
	s.NoError(err)
	s.Equal(types.TRANSACTION_ERROR, result.Status)

	var txn models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", result.TransactionID).First(&txn).Error)
	s.Equal(types.TRANSACTION_ERROR, txn.Status)

	// a failed attempt keeps the cart for retry
	items, err := ListCartItems(owner)
	s.NoError(err)
	s.Len(items, 1)
}

func (s *CommonTestSuite) initiatePaid(owner string) *models.Transaction {
	s.expectLockAcquired()
	result, err := InitiateCheckout(owner, &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
	s.Require().NoError(err)
	var txn models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", result.TransactionID).First(&txn).Error)
	return &txn
}

func (s *CommonTestSuite) TestWebhookApprovesAndMaterializes() {
	owner := "user:webhook"
	s.addTicketLine(owner, s.Ticket.ID, s.Event.Date, 2)
	s.addMenuLine(owner, 1, &s.Variant.ID)
	txn := s.initiatePaid(owner)

	// catalog changes after initiation must not affect the settled amount
	s.Require().NoError(s.DB.Model(&models.Ticket{}).Where("id = ?", s.Ticket.ID).Update("price", 99999).Error)

	ev := &GatewayEvent{
		ProviderEventID:       "evt_1",
		ProviderTransactionID: *txn.ProviderTransactionID,
		EventType:             "checkout.session.completed",
		Status:                types.TRANSACTION_APPROVED,
		Payload:               types.JSONB{"payment_status": "paid"},
	}
	s.expectLockReleased(owner)
	s.Require().NoError(HandleGatewayEvent(ev))
	// settling drops the checkout lock so the owner can shop again
	s.NoError(s.RedisMock.ExpectationsWereMet())

	var settled models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", txn.ID).First(&settled).Error)
	s.Equal(types.TRANSACTION_APPROVED, settled.Status)
	s.NotNil(settled.FinalizedAt)

	var tickets []models.TicketPurchase
	s.Require().NoError(s.DB.Where("transaction_id = ?", txn.ID).Find(&tickets).Error)
	s.Require().Len(tickets, 1)
	s.Equal(int64(80000), tickets[0].UnitPrice)
	s.Equal(int64(160000), tickets[0].Subtotal)

	var menu []models.MenuPurchase
	s.Require().NoError(s.DB.Where("transaction_id = ?", txn.ID).Find(&menu).Error)
	s.Require().Len(menu, 1)
	s.Equal(int64(35000), menu[0].UnitPrice)
	s.Require().NotNil(menu[0].VariantID)
	s.Equal(s.Variant.ID, *menu[0].VariantID)

	items, err := ListCartItems(owner)
	s.NoError(err)
	s.Empty(items)

	s.Run("replayed delivery is a no-op", func() {
		s.Require().NoError(HandleGatewayEvent(ev))
		var count int64
		s.DB.Model(&models.TicketPurchase{}).Where("transaction_id = ?", txn.ID).Count(&count)
		s.Equal(int64(1), count)
	})

	s.Run("a later conflicting event cannot unsettle the transaction", func() {
		late := &GatewayEvent{
			ProviderEventID:       "evt_2",
			ProviderTransactionID: *txn.ProviderTransactionID,
			EventType:             "checkout.session.expired",
			Status:                types.TRANSACTION_TIMEOUT,
			Payload:               types.JSONB{},
		}
		s.Require().NoError(HandleGatewayEvent(late))
		var after models.Transaction
		s.Require().NoError(s.DB.Where("id = ?", txn.ID).First(&after).Error)
		s.Equal(types.TRANSACTION_APPROVED, after.Status)
	})
}

func (s *CommonTestSuite) TestWebhookDeclineKeepsCart() {
	owner := "user:declined"
	s.addMenuLine(owner, 2, nil)
	txn := s.initiatePaid(owner)

	ev := &GatewayEvent{
		ProviderEventID:       "evt_decline",
		ProviderTransactionID: *txn.ProviderTransactionID,
		EventType:             "checkout.session.async_payment_failed",
		Status:                types.TRANSACTION_DECLINED,
		Payload:               types.JSONB{},
	}
	s.Require().NoError(HandleGatewayEvent(ev))

	var settled models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", txn.ID).First(&settled).Error)
	s.Equal(types.TRANSACTION_DECLINED, settled.Status)

	items, err := ListCartItems(owner)
	s.NoError(err)
	s.Len(items, 1)

	var count int64
	s.DB.Model(&models.MenuPurchase{}).Where("transaction_id = ?", txn.ID).Count(&count)
	s.Equal(int64(0), count)
}

func (s *CommonTestSuite) TestWebhookForUnknownSession() {
	err := HandleGatewayEvent(&GatewayEvent{
		ProviderEventID:       "evt_stray",
		ProviderTransactionID: "cs_unknown",
		EventType:             "checkout.session.completed",
		Status:                types.TRANSACTION_APPROVED,
		Payload:               types.JSONB{},
	})
	s.ErrorIs(err, types.ErrUnknownTransaction)
}

func (s *CommonTestSuite) TestConfirmCheckout() {
	owner := "user:confirm"
	s.addTicketLine(owner, s.Ticket.ID, s.Event.Date, 1)
	txn := s.initiatePaid(owner)
	s.Gateway.RetrieveStatus = types.TRANSACTION_APPROVED

	confirmed, err := ConfirmCheckout(&types.ConfirmCheckoutRequestBody{TransactionID: txn.ID.String()})
	s.NoError(err)
	s.Equal(types.TRANSACTION_APPROVED, confirmed.Status)

	s.Run("a second confirm is idempotent", func() {
		again, err := ConfirmCheckout(&types.ConfirmCheckoutRequestBody{TransactionID: txn.ID.String()})
		s.NoError(err)
		s.Equal(types.TRANSACTION_APPROVED, again.Status)
		s.Equal(confirmed.FinalizedAt.Unix(), again.FinalizedAt.Unix())
	})

	s.Run("unknown transaction id", func() {
		_, err := ConfirmCheckout(&types.ConfirmCheckoutRequestBody{TransactionID: uuid.NewString()})
		s.ErrorIs(err, types.ErrUnknownTransaction)
		s.Equal(404, types.ErrorStatusCode(err))
	})

	s.Run("malformed transaction id", func() {
		_, err := ConfirmCheckout(&types.ConfirmCheckoutRequestBody{TransactionID: "not-a-uuid"})
		s.ErrorIs(err, types.ErrUnknownTransaction)
	})
}

func (s *CommonTestSuite) TestSweeper() {
	owner := "user:stale"
	s.addMenuLine(owner, 1, nil)
	txn := s.initiatePaid(owner)

	stale := time.Now().UTC().Add(-2 * config.PendingTimeout())
	s.Require().NoError(s.DB.Model(&models.Transaction{}).Where("id = ?", txn.ID).Update("created_at", stale).Error)

	s.expectLockReleased(owner)
	SweepPendingTransactions()

	var swept models.Transaction
	s.Require().NoError(s.DB.Where("id = ?", txn.ID).First(&swept).Error)
	s.Equal(types.TRANSACTION_TIMEOUT, swept.Status)
	s.NotNil(swept.FinalizedAt)
	s.NoError(s.RedisMock.ExpectationsWereMet())

	s.Run("a settled transaction is never re-swept", func() {
		SweepPendingTransactions()
		var again models.Transaction
		s.Require().NoError(s.DB.Where("id = ?", txn.ID).First(&again).Error)
		s.Equal(types.TRANSACTION_TIMEOUT, again.Status)
	})

	s.Run("the owner can start a fresh checkout after the sweep", func() {
		s.expectLockAcquired()
		result, err := InitiateCheckout(owner, &types.InitiateCheckoutRequestBody{BuyerEmail: "guest@example.com"})
		s.NoError(err)
		s.Equal(types.TRANSACTION_PENDING, result.Status)
	})
}
