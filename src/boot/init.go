package boot

import (
	"log"
	"time"

	"ucc/src/common"
	"ucc/src/config"
	"ucc/src/db"
	"ucc/src/lib"
	"ucc/src/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.Club{},
		&models.ClubEvent{},
		&models.Ticket{},
		&models.MenuItem{},
		&models.MenuItemVariant{},
		&models.CartItem{},
		&models.Transaction{},
		&models.TicketPurchase{},
		&models.MenuPurchase{},
		&models.WebhookEvent{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	if !lib.KafkaEnabled() {
		return
	}
	go lib.KafkaCreateTopics("transaction-status")
}

func InitScheduler() {
	_, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	jobId, err := lib.CreateCronJob(common.SweepPendingTransactions, config.SweepInterval())
	if err != nil {
		log.Printf("Error scheduling sweeper: %s\n", err.Error())
		return
	}
	log.Printf("Sweeper Job ID: %s\n", *jobId)
	// catch-up sweep right after boot for transactions that went stale
	// while the process was down, ahead of the first interval tick
	catchupId, err := lib.CreateOneTimeCronJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(time.Now().Add(10*time.Second))),
		gocron.NewTask(common.SweepPendingTransactions),
	)
	if err != nil {
		log.Printf("Error scheduling catch-up sweep: %s\n", err.Error())
	} else {
		log.Printf("Catch-up Sweep Job ID: %s\n", *catchupId)
	}
	sched, _ := lib.GetScheduler()
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}
