/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
)

// The cleanup job runs out-of-band (cron or a scheduled task) and reaps games
// whose last player left without the realtime path deleting them, e.g. when
// a pending grace period was lost to a restart.
func newCleanupCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:           "cleanup",
		Short:         "Delete games with no remaining players.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd.Context(), cfg)
		},
	}
}

func runCleanup(ctx context.Context, cfg *Config) error {
	if cfg.databaseURI == "" {
		return errors.New("cleanup requires --database-uri")
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := newMongoStore(ctx, cfg.databaseURI, cfg.databaseName)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	total, err := store.CountGames(ctx)
	if err != nil {
		return err
	}
	empty, err := store.CountEmptyGames(ctx)
	if err != nil {
		return err
	}
	log.Printf("Total games: %d", total)
	log.Printf("Empty games: %d", empty)

	deleted, err := store.DeleteEmptyGames(ctx)
	if err != nil {
		return err
	}
	log.Printf("Deleted %d game(s)", deleted)

	return nil
}
