// provision creates a tenant organization and its first admin membership:
//
//	go run ./cmd/provision -slug=acme -name="Acme Inc" -admin=admin@acme.com
//
// The tenant signing secret is generated here and printed exactly once; only
// its encrypted form is stored.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/echofeed/echofeed/internal/config"
	"github.com/echofeed/echofeed/internal/crypto"
	"github.com/echofeed/echofeed/internal/database"
	"github.com/echofeed/echofeed/internal/org"
	"github.com/echofeed/echofeed/internal/user"
)

func main() {
	slug := flag.String("slug", "", "Organization slug (required)")
	name := flag.String("name", "", "Organization display name (defaults to the slug)")
	adminEmail := flag.String("admin", "", "Email of the first admin member (optional)")
	allowAdmins := flag.Bool("allow-admin-accounts", false, "Allow staff accounts on the external sign-in path")
	flag.Parse()

	if *slug == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *name == "" {
		*name = *slug
	}

	if err := run(*slug, *name, *adminEmail, *allowAdmins); err != nil {
		fmt.Fprintln(os.Stderr, "provision:", err)
		os.Exit(1)
	}
}

func run(slug, name, adminEmail string, allowAdmins bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	encryptionKey, err := cfg.EncryptionKeyBytes()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	orgs := org.NewRepository(db.Pool())
	users := user.NewRepository(db.Pool())

	if _, err := orgs.GetBySlug(ctx, slug); err == nil {
		return fmt.Errorf("organization %q already exists", slug)
	} else if !errors.Is(err, org.ErrOrgNotFound) {
		return err
	}

	secret, err := org.NewSecretKey()
	if err != nil {
		return err
	}
	secretEnc, err := crypto.Encrypt(secret, encryptionKey)
	if err != nil {
		return fmt.Errorf("encrypting secret key: %w", err)
	}

	o := &org.Organization{
		Slug:               slug,
		Name:               name,
		SecretKeyEnc:       secretEnc,
		BlockAdminAccounts: !allowAdmins,
	}
	if err := orgs.Create(ctx, o); err != nil {
		return err
	}

	if adminEmail != "" {
		admin, err := users.GetByEmail(ctx, adminEmail)
		if errors.Is(err, user.ErrUserNotFound) {
			admin = &user.User{Email: adminEmail, Name: adminEmail}
			err = users.Create(ctx, admin)
		}
		if err != nil {
			return err
		}
		if err := orgs.AddMember(ctx, &org.Member{
			OrganizationID: o.ID,
			UserID:         admin.ID,
			Role:           "admin",
		}); err != nil {
			return err
		}
	}

	fmt.Printf("organization: %s (%s)\n", o.Slug, o.ID)
	fmt.Printf("signing secret (store it now, it is not shown again): %s\n", secret)
	return nil
}
