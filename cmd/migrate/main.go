package main

import (
	"flag"
	"os"

	"coopledger/pkg/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding the *.up.sql / *.down.sql files")
	down := flag.Bool("down", false, "roll back the latest migration")
	version := flag.Bool("version", false, "print the current schema version")
	flag.Parse()

	config.LoadEnv()
	config.InitLogger(false)

	// the schema is owned by the migration files here
	os.Setenv("DB_AUTO_MIGRATE", "false")
	config.InitDB()

	switch {
	case *version:
		v, dirty := config.MigrationVersion(*dir)
		log.WithFields(log.Fields{"version": v, "dirty": dirty}).Info("Current schema version")
	case *down:
		config.RollbackMigration(*dir)
	default:
		config.ExecuteMigrations(*dir)
	}
}
