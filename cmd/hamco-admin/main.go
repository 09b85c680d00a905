// ABOUTME: Operator CLI for hamco user and API key management
// ABOUTME: Works directly against the SQLite database, no server required

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/hamco/hamco/internal/apikeys"
	"github.com/hamco/hamco/internal/auth"
	"github.com/hamco/hamco/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Keep CLI output clean; store debug logs go nowhere useful here.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	dbPath := os.Getenv("HAMCO_DB")
	if dbPath == "" {
		dbPath = "hamco.db"
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "users":
		err = cmdUsers(dbPath, args)
	case "keys":
		err = cmdKeys(dbPath, args)
	case "slogans":
		err = cmdSlogans(dbPath, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: hamco-admin <command> [args]")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  HAMCO_DB    Path to the SQLite database (default: hamco.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  users list                       List users")
	fmt.Println("  users promote <email>            Grant the Admin role")
	fmt.Println("  keys list                        List API keys")
	fmt.Println("  keys generate --by <admin-email> --label <label> [--elevated] [--expires <duration>]")
	fmt.Println("  keys revoke <id>                 Revoke an API key")
	fmt.Println("  slogans add <text>               Add a home page slogan")
}

func openStore(dbPath string) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(dbPath)
}

func cmdUsers(dbPath string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("users requires a subcommand: list, promote")
	}

	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	switch args[0] {
	case "list":
		users, err := st.ListUsers(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tADMIN\tVERIFIED\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%s\n",
				u.ID, u.Email, u.Admin, u.EmailVerified, u.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "promote":
		if len(args) < 2 {
			return fmt.Errorf("users promote requires an email")
		}
		user, err := st.GetUserByEmail(ctx, args[1])
		if err != nil {
			return err
		}
		if err := st.SetUserAdmin(ctx, user.ID, true); err != nil {
			return err
		}
		color.Green("Promoted %s to Admin", user.Email)
		return nil

	default:
		return fmt.Errorf("unknown users subcommand: %s", args[0])
	}
}

func cmdKeys(dbPath string, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("keys requires a subcommand: list, generate, revoke")
	}

	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	svc := apikeys.New(st, nil)

	switch args[0] {
	case "list":
		keys, err := svc.List(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLABEL\tPREFIX\tELEVATED\tACTIVE\tEXPIRES\tCREATED")
		for _, k := range keys {
			expires := "-"
			if k.ExpiresAt != nil {
				expires = k.ExpiresAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\t%s\t%s\n",
				k.ID, k.Label, k.Prefix, k.Elevated, k.Active, expires, k.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()

	case "generate":
		return cmdKeyGenerate(ctx, st, svc, args[1:])

	case "revoke":
		if len(args) < 2 {
			return fmt.Errorf("keys revoke requires a key id")
		}
		if err := svc.Revoke(ctx, args[1]); err != nil {
			return err
		}
		color.Yellow("Revoked key %s", args[1])
		return nil

	default:
		return fmt.Errorf("unknown keys subcommand: %s", args[0])
	}
}

func cmdKeyGenerate(ctx context.Context, st *store.SQLiteStore, svc *apikeys.Service, args []string) error {
	var byEmail, label, expiresIn string
	var elevated bool

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--by":
			i++
			if i >= len(args) {
				return fmt.Errorf("--by requires a value")
			}
			byEmail = args[i]
		case "--label":
			i++
			if i >= len(args) {
				return fmt.Errorf("--label requires a value")
			}
			label = args[i]
		case "--elevated":
			elevated = true
		case "--expires":
			i++
			if i >= len(args) {
				return fmt.Errorf("--expires requires a duration value")
			}
			expiresIn = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if byEmail == "" {
		return fmt.Errorf("--by <admin-email> is required")
	}
	if label == "" {
		return fmt.Errorf("--label is required")
	}

	user, err := st.GetUserByEmail(ctx, byEmail)
	if err != nil {
		return err
	}
	if !user.Admin {
		return fmt.Errorf("user %s does not hold the Admin role", user.Email)
	}

	var expiresAt *time.Time
	if expiresIn != "" {
		d, err := time.ParseDuration(expiresIn)
		if err != nil {
			return fmt.Errorf("parsing --expires %q: %w", expiresIn, err)
		}
		t := time.Now().Add(d)
		expiresAt = &t
	}

	actor := &auth.Principal{
		UserID: user.ID,
		Name:   user.Email,
		Roles:  auth.RolesForAdminFlag(true),
		Method: auth.MethodToken,
	}

	key, err := svc.Generate(ctx, actor, label, elevated, expiresAt)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Println("API key generated")
	fmt.Printf("  id:       %s\n", key.ID)
	fmt.Printf("  label:    %s\n", key.Label)
	fmt.Printf("  prefix:   %s\n", key.Prefix)
	fmt.Printf("  elevated: %v\n", key.Elevated)
	fmt.Println()
	color.Yellow("  secret:   %s", key.Secret)
	fmt.Println()
	fmt.Println(strings.TrimSpace(`
The secret is shown once and cannot be recovered. Store it now.`))
	return nil
}

func cmdSlogans(dbPath string, args []string) error {
	if len(args) < 2 || args[0] != "add" {
		return fmt.Errorf("slogans requires: add <text>")
	}

	st, err := openStore(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	slogan := &store.Slogan{Text: strings.Join(args[1:], " ")}
	if err := st.CreateSlogan(context.Background(), slogan); err != nil {
		return err
	}
	color.Green("Added slogan %s", slogan.ID)
	return nil
}
