// ABOUTME: Sync commands for the Charm cloud chunk snapshot
// ABOUTME: Provides status, now, pull, wipe, and keys management
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/fkguiden/internal/charm"
	"github.com/harper/fkguiden/internal/config"
	"github.com/harper/fkguiden/internal/storage"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization of the chunk snapshot with Charm cloud.

With FK_SNAPSHOT=charm the indexed corpus is stored in a Charm KV
database and syncs via SSH keys to every device linked to the same
Charm account. Use "sync pull" to copy the cloud corpus into the
local bolt snapshot for offline serving.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncPullCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

func openCharm() (*config.Config, *charm.Client, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	client, err := charm.NewClient(&charm.Config{
		Host:     cfg.CharmHost,
		DBName:   cfg.CharmDBName,
		AutoSync: false,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Charm: %w", err)
	}
	return cfg, client, nil
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := openCharm()
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			id, err := client.ID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				fmt.Fprintln(out, "Run 'fkguiden sync keys' to check your SSH keys")
				return nil
			}

			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			fmt.Fprintf(out, "Host: %s\n", cfg.CharmHost)
			fmt.Fprintf(out, "Database: %s\n", cfg.CharmDBName)

			keys, err := client.ListKeys(charm.CollectionChunkPrefix(cfg.Collection))
			if err == nil {
				fmt.Fprintf(out, "Chunks: %d\n", len(keys))
			}
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := openCharm()
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}

func newSyncPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Copy the cloud corpus into the local snapshot",
		Long: `Sync the Charm chunk collection and copy every chunk into the
local snapshot at FK_SNAPSHOT_PATH (bolt unless FK_SNAPSHOT=json).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := openCharm()
			if err != nil {
				return err
			}
			if err := client.Sync(); err != nil {
				client.Close()
				return fmt.Errorf("sync failed: %w", err)
			}
			src := storage.NewCharmStore(client, cfg.Collection)
			defer src.Close()

			if cfg.Snapshot == config.SnapshotCharm {
				cfg.Snapshot = config.SnapshotBolt
			}
			dst, err := storage.OpenSnapshot(cfg)
			if err != nil {
				return fmt.Errorf("opening local snapshot: %w", err)
			}
			defer dst.Close()

			n, err := copyChunks(cmd.Context(), src, dst)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d chunk(s) to %s\n", n, cfg.SnapshotPath)
			return nil
		},
	}
}

// copyChunks loads every chunk of src and upserts it into dst
func copyChunks(ctx context.Context, src storage.Source, dst storage.Writer) (int, error) {
	chunks, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := dst.EnsureCollection(ctx, len(chunks[0].Embedding)); err != nil {
		return 0, fmt.Errorf("preparing snapshot: %w", err)
	}
	if err := dst.Upsert(ctx, chunks...); err != nil {
		return 0, fmt.Errorf("writing chunks: %w", err)
	}
	return len(chunks), nil
}

func newSyncWipeCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe all local Charm data (nuclear option)",
		Long: `Completely wipe all local Charm data.

WARNING: This deletes all locally cached data. Your cloud data
remains intact and will be re-synced on next access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will wipe ALL local data!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}

			_, client, err := openCharm()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Reset(); err != nil {
				return fmt.Errorf("failed to wipe data: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Local data wiped successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")

	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List authorized SSH keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := openCharm()
			if err != nil {
				return err
			}
			defer client.Close()

			keys, err := client.AuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to get authorized keys: %w", err)
			}

			if keys == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No authorized keys found")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Authorized SSH keys:")
			fmt.Fprintln(cmd.OutOrStdout(), keys)

			return nil
		},
	}
}
