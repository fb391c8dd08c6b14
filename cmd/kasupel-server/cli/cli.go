// Package cli implements the `kasupel-server db` subcommand tree: the
// same database-maintenance surface the teacher's CLI gave its
// UUID-keyed users, adapted to Kasupel's integer ids and account
// validation rules.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/kasupel/server/internal/account"
	"github.com/kasupel/server/internal/storage"
)

// Run is the entry point for `kasupel-server db <subcommand>`.
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, user")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "query":
		return runQuery(args[1:])
	case "user":
		if len(args) < 2 {
			return fmt.Errorf("user subcommand required: add, delete, set-password, set-email, leaderboard")
		}
		return runUser(args[1], args[2:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("database path required")
	}

	store, err := storage.NewStore(*path, false)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Printf("Database initialized at: %s\n", *path)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("database path required")
	}

	store, err := storage.NewStore(*path, false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}
	fmt.Printf("Database deleted: %s\n", *path)
	return nil
}

// runQuery prints either a single game (-game) or every stored game
// involving one account (-account), since the storage layer only
// exposes per-account and per-id lookups, not an unfiltered table scan.
func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	gameID := fs.Int64("game", 0, "Game id to print (optional)")
	accountID := fs.Int64("account", 0, "Account id to list completed/ongoing games for (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("database path required")
	}
	if *gameID == 0 && *accountID == 0 {
		return fmt.Errorf("one of -game or -account required")
	}

	store, err := storage.NewStore(*path, false)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tMode\tHost\tAway\tWinner\tOpened")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	print := func(id int64) error {
		g, err := store.Game(id)
		if err != nil {
			return err
		}
		away := "-"
		if g.AwayID != nil {
			away = strconv.FormatInt(*g.AwayID, 10)
		}
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%d\t%s\n",
			g.ID, int(g.Mode), g.HostID, away, int(g.Winner), g.OpenedAt.Format("2006-01-02 15:04:05"))
		return nil
	}

	if *gameID != 0 {
		if err := print(*gameID); err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
	} else {
		ongoing, err := store.GamesOngoingFor(*accountID, 0, 100)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		completed, err := store.GamesCompletedFor(*accountID, 0, 100)
		if err != nil {
			return fmt.Errorf("query failed: %w", err)
		}
		for _, g := range append(ongoing, completed...) {
			if err := print(g.ID); err != nil {
				return fmt.Errorf("query failed: %w", err)
			}
		}
	}
	w.Flush()
	return nil
}

func runUser(subcommand string, args []string) error {
	switch subcommand {
	case "add":
		return runUserAdd(args)
	case "delete":
		return runUserDelete(args)
	case "set-password":
		return runUserSetPassword(args)
	case "set-email":
		return runUserSetEmail(args)
	case "leaderboard":
		return runUserLeaderboard(args)
	default:
		return fmt.Errorf("unknown user subcommand: %s", subcommand)
	}
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pwBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pwBytes), nil
}

func openAccounts(path string) (*storage.Store, *account.Accounts, error) {
	store, err := storage.NewStore(path, false)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, account.New(store, nil), nil
}

func runUserAdd(args []string) error {
	fs := flag.NewFlagSet("user add", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *username == "" || *email == "" {
		return fmt.Errorf("-path, -username and -email are required")
	}

	pw := *password
	if pw == "" {
		var err error
		pw, err = readPassword("Enter password: ")
		if err != nil {
			return err
		}
	}

	store, accounts, err := openAccounts(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := accounts.Create(*username, pw, *email)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	fmt.Printf("User created: id=%d username=%s\n", id, *username)
	return nil
}

func runUserDelete(args []string) error {
	fs := flag.NewFlagSet("user delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *username == "" {
		return fmt.Errorf("-path and -username are required")
	}

	store, accounts, err := openAccounts(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	u, err := accounts.ByUsername(*username)
	if err != nil {
		return fmt.Errorf("user not found: %s", *username)
	}
	if err := accounts.Delete(u.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	fmt.Printf("User deleted: %s (id=%d)\n", *username, u.ID)
	return nil
}

func runUserSetPassword(args []string) error {
	fs := flag.NewFlagSet("user set-password", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	password := fs.String("password", "", "New password (will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *username == "" {
		return fmt.Errorf("-path and -username are required")
	}

	pw := *password
	if pw == "" {
		var err error
		pw, err = readPassword("Enter new password: ")
		if err != nil {
			return err
		}
	}

	store, accounts, err := openAccounts(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	u, err := accounts.ByUsername(*username)
	if err != nil {
		return fmt.Errorf("user not found: %s", *username)
	}
	if err := accounts.UpdatePassword(u.ID, pw); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	fmt.Printf("Password updated for user: %s\n", *username)
	return nil
}

func runUserSetEmail(args []string) error {
	fs := flag.NewFlagSet("user set-email", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	email := fs.String("email", "", "New email address (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *username == "" || *email == "" {
		return fmt.Errorf("-path, -username and -email are required")
	}

	store, accounts, err := openAccounts(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	u, err := accounts.ByUsername(*username)
	if err != nil {
		return fmt.Errorf("user not found: %s", *username)
	}
	if err := accounts.UpdateEmail(u.ID, *email); err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}
	fmt.Printf("Email updated for user: %s\n", *username)
	return nil
}

func runUserLeaderboard(args []string) error {
	fs := flag.NewFlagSet("user leaderboard", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	page := fs.Int("page", 0, "Page number (0-indexed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("database path required")
	}

	store, accounts, err := openAccounts(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	users, total, err := accounts.Leaderboard(*page)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Println("No users found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUsername\tElo\tVerified\tCreated")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%d\t%v\t%s\n",
			u.ID, u.Username, u.Elo, u.EmailVerified, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()
	fmt.Printf("\n%d of %d total users\n", len(users), total)
	return nil
}
