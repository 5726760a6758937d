package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"plantaton/internal/db"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
	"plantaton/internal/service"

	"github.com/joho/godotenv"
)

// Creates (or reuses) a dev account with its plots and prints a JWT for it.
func main() {
	_ = godotenv.Load()
	logger.Init("info", false)

	username := flag.String("username", "testuser", "username of the dev account")
	ref := flag.String("ref", "", "referral code or referrer id")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	service.InitJWT(secret)
	store := repository.NewPostgresStore(pool)
	auth := service.NewAuthService(store, nil, service.AuthConfig{})

	res, err := auth.DevLogin(context.Background(), *username, *ref, service.LoginMeta{})
	if err != nil {
		logger.Fatal("dev login failed", "error", err)
	}

	u := res.User
	code := ""
	if u.ReferralCode != nil {
		code = *u.ReferralCode
	}
	logger.Info("test user ready", "user_id", u.ID, "username", u.Username, "created", res.Created, "referral_code", code)
	fmt.Println(res.Token)
}
