package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/rhonaldomaster/gshop-sub000/internal/modules/invoices"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/orders"
	"github.com/rhonaldomaster/gshop-sub000/internal/modules/payments"
)

func main() {
	_ = godotenv.Load()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&orders.Order{},
		&payments.Payment{},
		&payments.CryptoTransaction{},
		&payments.PaymentMethod{},
		&payments.ProviderEvent{},
		&invoices.Invoice{},
	)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	log.Println("migration complete")
}
