package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/apexsim/raceline/internal/store"
)

// createPathSlot builds the persistence slot per paths.backend. The
// database backends share one gorm connection held in dbManager; the
// file backend writes a plain JSON file under paths.dir.
func createPathSlot(zl zerolog.Logger) (store.Slot, error) {
	backend := viper.GetString("paths.backend")
	slotName := viper.GetString("paths.slot")

	switch backend {
	case "sqlite", "postgres":
		dbManager = store.NewDatabaseManager(zl)
		if err := dbManager.Connect(); err != nil {
			return nil, fmt.Errorf("connecting %s backend: %w", backend, err)
		}
		slot, err := store.NewDBSlot(dbManager, slotName)
		if err != nil {
			return nil, fmt.Errorf("creating database slot: %w", err)
		}
		return slot, nil

	case "file":
		dir := viper.GetString("paths.dir")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating paths directory: %w", err)
		}
		slot, err := store.NewFileSlot(filepath.Join(dir, slotName+".json"))
		if err != nil {
			return nil, fmt.Errorf("creating file slot: %w", err)
		}
		return slot, nil

	default:
		return nil, fmt.Errorf("unknown paths.backend %q", backend)
	}
}
