// create-admin bootstraps the first staff account. It bcrypt-hashes the
// given password and inserts the user directly, bypassing the API which has
// no self-registration.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/odemir/clinicbook/libs/db"
	"github.com/odemir/clinicbook/services/clinic-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		username = flag.String("username", "", "login name for the new account")
		password = flag.String("password", "", "plaintext password, hashed before storage")
		role     = flag.String("role", storage.RoleAdmin, "account role (admin or doctor)")
		doctorID = flag.String("doctor-id", "", "doctor id to scope a doctor-role account to")
	)
	flag.Parse()

	if strings.TrimSpace(*username) == "" || *password == "" {
		fatal("-username and -password are required")
	}
	if *role != storage.RoleAdmin && *role != storage.RoleDoctor {
		fatal("-role must be admin or doctor")
	}
	if *role == storage.RoleDoctor && strings.TrimSpace(*doctorID) == "" {
		fatal("-doctor-id is required for doctor-role accounts")
	}

	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		fatal("DATABASE_URL is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fatal(err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.Open(ctx, databaseURL, db.Options{})
	if err != nil {
		fatal(err.Error())
	}
	defer pool.Close()

	var docID *string
	if strings.TrimSpace(*doctorID) != "" {
		v := strings.TrimSpace(*doctorID)
		docID = &v
	}

	id, err := storage.NewAdminUserRepository(pool).Create(ctx, strings.TrimSpace(*username), string(hash), *role, docID)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("created %s user %s (id %s)\n", *role, *username, id)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
