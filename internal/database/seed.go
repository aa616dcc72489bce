package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/models"
)

// Account is a dashboard login created by SeedAccounts
type Account struct {
	Email    string
	Password string
	Name     string
	Phone    string
	Role     models.Role
}

// DefaultAccounts are the demo logins for a fresh self-hosted install
var DefaultAccounts = []Account{
	{Email: "admin@gasdash.local", Password: "admin123", Name: "Admin User", Role: models.RoleAdmin},
	{Email: "manager@gasdash.local", Password: "manager123", Name: "Dispatch Manager", Role: models.RoleManager},
	{Email: "driver@gasdash.local", Password: "driver123", Name: "John Driver", Phone: "+15550100", Role: models.RoleDriver},
}

// SeedAccounts creates a credential plus a users/{uid} profile for each
// account. Drivers also get a fleet record in the drivers collection.
// Accounts whose credential exists keep it; their profile is restored when
// the document store lost it.
func SeedAccounts(ctx context.Context, db *sqlx.DB, local *identity.Local, docs docstore.Store, accounts []Account) error {
	log.Printf("🌱 Seeding %d accounts...", len(accounts))

	created := 0
	for _, acct := range accounts {
		email := strings.ToLower(strings.TrimSpace(acct.Email))
		var uid string
		err := db.GetContext(ctx, &uid, "SELECT uid FROM credentials WHERE email = $1", email)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			uid, err = local.CreateCredential(ctx, email, acct.Password)
			if err != nil {
				return fmt.Errorf("seed %s: %w", email, err)
			}
			created++
			log.Printf("  ✓ Created account: %s (%s)", email, acct.Role)
		case err != nil:
			return fmt.Errorf("look up %s: %w", email, err)
		}

		_, err = docs.Get(ctx, models.UsersCollection, uid)
		if err == nil {
			continue
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("load profile %s: %w", email, err)
		}
		if err := seedProfile(ctx, docs, uid, email, acct); err != nil {
			return err
		}
	}

	if created == 0 {
		log.Println("✓ Accounts already seeded")
		return nil
	}
	log.Println("✓ Successfully seeded accounts")
	for _, acct := range accounts {
		log.Printf("  📧 %-8s %s / %s", string(acct.Role)+":", acct.Email, acct.Password)
	}
	return nil
}

func seedProfile(ctx context.Context, docs docstore.Store, uid, email string, acct Account) error {
	now := time.Now().UTC()
	profile := models.User{
		ID:        uid,
		Name:      acct.Name,
		Email:     email,
		Role:      acct.Role,
		Status:    models.UserStatusActive,
		Phone:     acct.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := docs.Set(ctx, models.UsersCollection, uid, &profile); err != nil {
		return fmt.Errorf("seed profile %s: %w", email, err)
	}

	if acct.Role == models.RoleDriver {
		driver := models.Driver{
			UserID:    uid,
			Name:      acct.Name,
			Email:     email,
			Phone:     acct.Phone,
			Status:    models.DriverStatusOffline,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if _, err := docs.Create(ctx, models.DriversCollection, &driver); err != nil {
			return fmt.Errorf("seed driver %s: %w", email, err)
		}
	}
	log.Printf("  ✓ Profile written for %s", email)
	return nil
}
