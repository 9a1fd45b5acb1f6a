// createuser creates an account directly in the database, prompting for the
// password on the terminal. Useful for bootstrapping an admin user without
// going through the HTTP API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"campusbook/auth/internal/config"
	"campusbook/auth/internal/db"
	"campusbook/auth/internal/security"
	userdomain "campusbook/auth/internal/user/domain"
	userrepo "campusbook/auth/internal/user/repository"
)

func main() {
	email := flag.String("email", "", "Email address (required)")
	username := flag.String("username", "", "Username (required)")
	firstName := flag.String("first-name", "", "First name")
	lastName := flag.String("last-name", "", "Last name")
	flag.Parse()

	if *email == "" || *username == "" {
		fmt.Fprintln(os.Stderr, "createuser: -email and -username are required")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("config", err)
	}

	var handle *sql.DB
	var users userrepo.Repository
	if cfg.SQLitePath != "" {
		handle, err = db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			fatal("sqlite", err)
		}
		users = userrepo.NewSQLiteRepository(handle)
	} else {
		handle, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			fatal("postgres", err)
		}
		users = userrepo.NewPostgresRepository(handle)
	}
	defer handle.Close()

	password, err := readPassword()
	if err != nil {
		fatal("password", err)
	}

	hashed, err := security.NewHasher(cfg.BcryptCost).Hash(password)
	if err != nil {
		fatal("hash", err)
	}

	ctx := context.Background()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        strings.TrimSpace(strings.ToLower(*email)),
		Username:     strings.TrimSpace(*username),
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(*firstName),
		LastName:     strings.TrimSpace(*lastName),
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	if err := u.Validate(); err != nil {
		fatal("validate", err)
	}
	if existing, err := users.GetByEmail(ctx, u.Email); err != nil {
		fatal("lookup", err)
	} else if existing != nil {
		fatal("create", fmt.Errorf("a user with email %s already exists", u.Email))
	}
	if err := users.Create(ctx, u); err != nil {
		fatal("create", err)
	}
	fmt.Printf("created user %s (%s)\n", u.Username, u.ID)
}

func readPassword() ([]byte, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(os.Stderr, "Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if string(password) != string(confirm) {
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	return password, nil
}

func fatal(op string, err error) {
	fmt.Fprintf(os.Stderr, "createuser: %s: %v\n", op, err)
	os.Exit(1)
}
