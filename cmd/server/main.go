package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhofrandev/donations-manager/internal/api"
	"github.com/jhofrandev/donations-manager/internal/authn"
	"github.com/jhofrandev/donations-manager/internal/mailer"
	"github.com/jhofrandev/donations-manager/internal/ratelimit"
	"github.com/jhofrandev/donations-manager/internal/store"
	"github.com/jhofrandev/donations-manager/internal/workflow"
	"github.com/jhofrandev/donations-manager/pkg/db"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	pool := db.MustConnect()
	st := store.New(pool)
	if err := st.EnsureSchema(context.Background()); err != nil {
		logrus.WithError(err).Fatal("schema setup failed")
	}

	secret := strings.TrimSpace(os.Getenv("TOKEN_SIGNING_SECRET"))
	if secret == "" {
		logrus.Fatal("TOKEN_SIGNING_SECRET is required")
	}
	issuer := authn.TokenIssuer{
		Secret:     []byte(secret),
		AccessTTL:  time.Duration(envIntDefault("TOKEN_ACCESS_TTL_MINUTES", 60)) * time.Minute,
		RefreshTTL: time.Duration(envIntDefault("TOKEN_REFRESH_TTL_MINUTES", 7*24*60)) * time.Minute,
	}

	smtp, err := mailer.NewSMTP(mailer.SMTPConfig{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Port:     envIntDefault("SMTP_PORT", 587),
		Username: strings.TrimSpace(os.Getenv("SMTP_USERNAME")),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     strings.TrimSpace(os.Getenv("MAIL_FROM")),
	})
	if err != nil {
		logrus.WithError(err).Fatal("mailer setup failed")
	}

	if err := seedAdmin(context.Background(), st); err != nil {
		logrus.WithError(err).Fatal("admin seed failed")
	}

	engine := &workflow.Engine{Store: st, Mailer: smtp}
	authSvc := &authn.Service{Store: st}
	limiter := ratelimit.NewFixedWindow(envIntDefault("AUTH_IP_RATE_PER_MINUTE", 30), time.Minute)

	r := api.NewRouter(api.Handlers{
		Auth: &api.AuthHandler{
			Service:    authSvc,
			Tokens:     issuer,
			Limiter:    limiter,
			TrustProxy: envBool("TRUST_PROXY_HEADERS"),
		},
		Campaigns:     &api.CampaignHandler{Store: st},
		Beneficiaries: &api.BeneficiaryHandler{Store: st},
		Tasks:         &api.TaskHandler{Engine: engine, Store: st, Idem: st},
		Verifier:      issuer,
	})

	port := strings.TrimSpace(os.Getenv("SERVICE_PORT"))
	if port == "" {
		port = "8080"
	}
	logrus.WithField("port", port).Info("listening")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// seedAdmin bootstraps the first admin account from the environment so a
// fresh deployment has someone who can create campaigns.
func seedAdmin(ctx context.Context, st *store.Store) error {
	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return nil
	}
	u, err := st.GetUserByEmail(ctx, email)
	if err == nil {
		return st.SetRole(ctx, u.UserID, string(authn.RoleAdmin))
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u = store.User{
		UserID:       "usr_" + uuid.NewString(),
		Username:     "admin",
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := st.CreateUser(ctx, u); err != nil {
		return err
	}
	logrus.WithField("email", email).Info("seeded admin account")
	return st.SetRole(ctx, u.UserID, string(authn.RoleAdmin))
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return v
}

func envIntDefault(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
