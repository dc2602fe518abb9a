// Command ensure-admin creates or refreshes the bootstrap administrator from
// ADMIN_* environment variables. It is safe to run on every deploy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ProConnect-Lab/proconnect-backend/internal/store"
	"github.com/ProConnect-Lab/proconnect-backend/internal/user"
	"github.com/ProConnect-Lab/proconnect-backend/internal/user/entity"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/database"
	"github.com/ProConnect-Lab/proconnect-backend/pkg/utilities"
)

const defaultName = "ProConnect Administrator"

// seedFromEnv builds the seed; password overrides ADMIN_PASSWORD when set.
func seedFromEnv(password string) user.AdminSeed {
	seed := user.AdminSeed{
		Name:        strings.TrimSpace(os.Getenv("ADMIN_NAME")),
		Email:       strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		Password:    os.Getenv("ADMIN_PASSWORD"),
		Address:     os.Getenv("ADMIN_ADDRESS"),
		AccountType: entity.AccountType(strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_ACCOUNT_TYPE")))),
	}
	if seed.Name == "" {
		seed.Name = defaultName
	}
	if password != "" {
		seed.Password = password
	}
	return seed
}

func main() {
	_ = godotenv.Load()

	password := flag.String("password", "", "administrator password (overrides ADMIN_PASSWORD)")
	flag.Parse()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	seed := seedFromEnv(*password)
	if seed.Email == "" || seed.Password == "" {
		sugar.Warn("ADMIN_EMAIL and ADMIN_PASSWORD (or --password) are required; nothing to do")
		return
	}

	cfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(cfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	db := sqlx.NewDb(sqlDB, cfg.Driver)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		sugar.Fatalf("ensure schema: %v", err)
	}
	admin, err := user.NewService(pg, nil, sugar).EnsureAdmin(ctx, seed)
	if err != nil {
		sugar.Fatalf("ensure admin: %v", err)
	}
	sugar.Infow("administrator ready", "id", admin.ID, "email", admin.Email)
}
