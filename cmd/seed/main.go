// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"identity-plane/internal/config"
	"identity-plane/internal/db"
	membershipdomain "identity-plane/internal/membership/domain"
	membershiprepo "identity-plane/internal/membership/repository"
	"identity-plane/internal/security"
	tenantdomain "identity-plane/internal/tenant/domain"
	tenantrepo "identity-plane/internal/tenant/repository"
	userdomain "identity-plane/internal/user/domain"
	userrepo "identity-plane/internal/user/repository"
)

const (
	devUserEmail = "dev@example.com"
	devPassword  = "password123!"
	devUserID    = "5f0c2c7a-0000-4000-8000-000000000001"
	devEmailID   = "5f0c2c7a-0000-4000-8000-000000000002"
	devTenantID  = "5f0c2c7a-0000-4000-8000-000000000003"
	devDomainID  = "5f0c2c7a-0000-4000-8000-000000000004"
	devMemberID  = "5f0c2c7a-0000-4000-8000-000000000005"
	devSlug      = "devteam"
	devDomain    = "devteam.example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	tenants := tenantrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)

	existing, err := users.GetEmailByAddress(ctx, devUserEmail)
	if err != nil {
		log.Fatalf("lookup dev user: %v", err)
	}
	if existing != nil {
		fmt.Println("seed: dev user already present, nothing to do")
		return
	}

	now := time.Now().UTC()
	if err := users.CreateUser(ctx, &userdomain.User{
		ID: devUserID, Name: "Dev User", Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		log.Fatalf("create user: %v", err)
	}
	verified := now
	if err := users.AddEmail(ctx, &userdomain.Email{
		ID: devEmailID, UserID: devUserID, Address: devUserEmail,
		IsPrimary: true, VerifiedAt: &verified, CreatedAt: now,
	}); err != nil {
		log.Fatalf("add email: %v", err)
	}
	digest, err := security.NewHasher(0).Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	if err := users.AddPassword(ctx, &userdomain.Password{
		ID: devUserID, UserID: devUserID, Digest: digest, CreatedAt: now,
	}); err != nil {
		log.Fatalf("add password: %v", err)
	}

	if err := tenants.CreateTenant(ctx, &tenantdomain.Tenant{
		ID: devTenantID, OwnerID: devUserID, Slug: devSlug, Name: "Dev Team",
		ActivatedAt: &now, CreatedAt: now,
	}); err != nil {
		log.Fatalf("create tenant: %v", err)
	}
	if err := tenants.CreateDomain(ctx, &tenantdomain.Domain{
		ID: devDomainID, TenantID: devTenantID, Name: devDomain,
		Type: tenantdomain.DomainTypeSubdomain, IsPrimary: true,
		VerifiedAt: &verified, CreatedAt: now,
	}); err != nil {
		log.Fatalf("create domain: %v", err)
	}
	if err := memberships.CreateMembership(ctx, &membershipdomain.Membership{
		ID: devMemberID, UserID: devUserID, TenantID: devTenantID,
		Role: membershipdomain.RoleOwner, Joined: true, CreatedAt: now,
	}); err != nil {
		log.Fatalf("create membership: %v", err)
	}

	fmt.Printf("seed: created %s (password %q) owning tenant %s (%s)\n",
		devUserEmail, devPassword, devSlug, devDomain)
}
