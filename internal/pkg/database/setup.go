package database

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/mochoudhry5/WeddingServices-sub001/app/models"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

var DB *gorm.DB

// GetDB returns the process-wide database handle set up by SetupDatabase.
func GetDB() *gorm.DB {
	return DB
}

func SetupDatabase() {
	dialector, err := NewDialector(env.GetEnv("DB_DRIVER", DriverMySQL))
	if err != nil {
		panic(err)
	}

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(dialector, &gorm.Config{})
		if err == nil {
			if env.GetEnvBool("DB_AUTO_MIGRATE", env.IsDev()) {
				if err := AutoMigrate(DB); err != nil {
					log.Printf("AutoMigrate failed: %v", err)
				}
			}
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retry in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// AutoMigrate creates or updates the tables the billing webhook writes to.
// Production schemas are managed by cmd/migrate.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Subscription{},
		&models.PaymentMethod{},
		&models.BillingWebhookEvent{},
		&models.VenueListing{},
		&models.HairMakeupListing{},
		&models.PhotoVideoListing{},
		&models.DJListing{},
		&models.WeddingPlannerListing{},
	)
}

// NewDialector builds the GORM dialector for the configured driver.
func NewDialector(driver string) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverMySQL, "":
		return mysql.New(mysql.Config{
			DSN:                       MySQLDSN(),
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), nil
	case DriverPostgres:
		return postgres.New(postgres.Config{
			DSN:                  PostgresDSN(),
			PreferSimpleProtocol: true, // required behind pgbouncer in transaction mode
		}), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// MySQLDSN returns "user:pass@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=UTC".
func MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

// PostgresDSN returns a postgres:// URL for the hosted Postgres instance.
// Credentials are URL-escaped, so passwords may contain any character.
func PostgresDSN() string {
	query := url.Values{}
	query.Set("sslmode", env.GetEnv("DB_SSLMODE", "require"))
	query.Set("TimeZone", "UTC")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(env.GetEnv("DB_USER", "postgres"), env.GetEnv("DB_PASSWORD", "")),
		Host:     net.JoinHostPort(env.GetEnv("DB_HOST", "127.0.0.1"), env.GetEnv("DB_PORT", "5432")),
		Path:     "/" + env.GetEnv("DB_NAME", "postgres"),
		RawQuery: query.Encode(),
	}
	return u.String()
}
