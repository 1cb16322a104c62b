// Command botctl is the operator tool for the bot-accounting database.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/andrew11morozovtwo/bot-accounting/internal/auth"
	"github.com/andrew11morozovtwo/bot-accounting/internal/autosign"
	"github.com/andrew11morozovtwo/bot-accounting/internal/db"
	"github.com/andrew11morozovtwo/bot-accounting/internal/notify"
	"github.com/andrew11morozovtwo/bot-accounting/internal/report"
	"github.com/andrew11morozovtwo/bot-accounting/internal/store"
)

const usage = "Usage: botctl <report|reset|token|sweep> [flags]"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "report":
		err = cmdReport(os.Args[2:])
	case "reset":
		err = cmdReset(os.Args[2:])
	case "token":
		err = cmdToken(os.Args[2:])
	case "sweep":
		err = cmdSweep(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openDB opens an existing database. It refuses to create a new file.
func openDB(path string) (*sqlx.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func cmdReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "bot-accounting.sqlite3", "path to SQLite database file")
	fs.Parse(args)

	database, err := openDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	rep, err := report.Build(context.Background(), database)
	if err != nil {
		return err
	}
	return report.Write(os.Stdout, rep)
}

func cmdReset(args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	dbPath := fs.String("db", "bot-accounting.sqlite3", "path to SQLite database file")
	dryRun := fs.Bool("dry-run", false, "only count the rows that would be deleted")
	yes := fs.Bool("y", false, "do not ask for confirmation")
	fs.Parse(args)

	database, err := openDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if !*dryRun && !*yes {
		counts, err := store.ClearAssetData(ctx, database, true)
		if err != nil {
			return err
		}
		printCounts(counts, "to delete")
		fmt.Print("Delete all asset data? Users and settings are kept. [y/N] ")
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	counts, err := store.ClearAssetData(ctx, database, *dryRun)
	if err != nil {
		return err
	}
	if *dryRun {
		printCounts(counts, "to delete")
		return nil
	}
	printCounts(counts, "deleted")
	return nil
}

func printCounts(counts map[string]int64, verb string) {
	var total int64
	for _, table := range []string{"assets", "asset_instances", "operations", "pending_returns", "return_photos", "categories", "photos"} {
		fmt.Printf("  %-16s %d\n", table, counts[table])
		total += counts[table]
	}
	fmt.Printf("Rows %s: %d\n", verb, total)
}

func cmdToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	dbPath := fs.String("db", "bot-accounting.sqlite3", "path to SQLite database file")
	name := fs.String("name", "", "full name used if the user is new")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: botctl token [-db path] [-name name] <external-id>")
	}
	externalID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid external id %q", fs.Arg(0))
	}
	if *name == "" {
		*name = fs.Arg(0)
	}

	database, err := openDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	user, err := store.EnsureUser(ctx, database, externalID, *name)
	if err != nil {
		return err
	}
	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return err
	}
	token, err := auth.GenerateToken(secret, user)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "User %d (%s), role %s\n", user.ID, user.FullName, user.Role)
	fmt.Println(token)
	return nil
}

func cmdSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	dbPath := fs.String("db", "bot-accounting.sqlite3", "path to SQLite database file")
	window := fs.Duration("window", autosign.DefaultWindow, "how long recipients have to confirm")
	fs.Parse(args)

	database, err := openDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	res, err := autosign.New(database, notify.Log{}, autosign.WithWindow(*window)).Sweep(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Signed: %d, skipped: %d, failed: %d\n", res.Signed, res.Skipped, res.Failed)
	return nil
}
