package main

import (
	"context"
	"flag"
	"log"

	"github.com/nekogravitycat/zone-booking-backend/internal/admin"
	"github.com/nekogravitycat/zone-booking-backend/internal/auth"
	"github.com/nekogravitycat/zone-booking-backend/internal/config"
	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

func main() {
	skipAdmin := flag.Bool("skip-admin", false, "do not create or reset the admin account")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("failed to apply schema: %v", err)
	}
	log.Println("schema applied")

	created, err := zone.NewService(zone.NewPgxRepository(pool)).EnsureSeeded(ctx, zone.DefaultZones())
	if err != nil {
		log.Fatalf("failed to seed zones: %v", err)
	}
	log.Printf("zones seeded: created=%d", created)

	if *skipAdmin {
		return
	}

	// The admin service needs a token signer it never uses here.
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	admins := admin.NewService(admin.NewPgxRepository(pool), hasher, auth.NewJWTManager("seed", cfg.JWTAccessTokenTTL))
	a, err := admins.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	log.Printf("admin ready: email=%s", a.Email)
}
