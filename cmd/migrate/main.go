package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"mirror_bot/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Manages the schema of the mirror bot database. The bot applies pending
migrations itself on startup; this tool is for inspecting and rolling back.

Tables:
  mirrors         mirror links generated per chat (/history)
  subscriptions   feed subscriptions and their keyword filters
  seen_items      feed items already posted per subscription

Commands:
  up          apply all pending migrations and print the schema version
  up-one      apply the next migration
  down        roll back the last migration
  down-to N   roll back to version N
  status      list migrations and whether they are applied
  version     print the current schema version
  reset       roll back every migration (drops all bot data)
`

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to the bot's sqlite database")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if dir := filepath.Dir(*dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Fatalf("create data directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database %s: %v", *dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Setup(); err != nil {
		log.Fatalf("setup: %v", err)
	}

	cmd := args[0]
	switch cmd {
	case "up":
		var v int64
		if v, err = migrations.Run(db); err == nil {
			fmt.Printf("%s: schema at version %d\n", *dbPath, v)
		}
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "down-to":
		if len(args) < 2 {
			log.Fatal("down-to requires a target version")
		}
		v, perr := strconv.ParseInt(args[1], 10, 64)
		if perr != nil {
			log.Fatalf("invalid version %q: %v", args[1], perr)
		}
		err = goose.DownTo(db, ".", v)
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
