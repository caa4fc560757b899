package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasvilar/garimpo/internal/cache"
	"github.com/lucasvilar/garimpo/internal/catalog"
	"github.com/lucasvilar/garimpo/internal/model"
)

var (
	catalogSource  string
	catalogVersion string
	catalogDataDir string
	catalogRefresh bool
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Build and verify the municipality catalog",
	Long: `Build and verify the versioned Brazilian municipality catalog.

The catalog is the input of the gazetteer: one JSON artifact per version
holding every municipality with its IBGE code, state and region, plus a
SHA-256 checksum over the records. Builds are deterministic, so two runs
over the same provider payload produce the same checksum.`,
}

var catalogBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Download and publish a catalog artifact",
	Long: `Download the municipality dataset and publish a versioned artifact.

The primary source is tried first; on failure the remaining sources are
tried in order. An existing artifact is never overwritten unless
--refresh is given.

Sources: ibge (default), brasilapi`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		applyCatalogFlags(cfg, cmd)

		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		var store cache.Cache
		if cfg.Cache.Enabled && cfg.Cache.Dir != "" {
			store = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		}

		client := catalog.NewClient(cfg, store, logger)
		builder := catalog.NewBuilder(client, cfg.Catalog.DataDir, cfg.Catalog.MinRecords, logger)

		metadata, err := builder.Build(cmd.Context(), cfg.Catalog.PrimarySource, cfg.Catalog.Version, catalogRefresh)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Catalog %s published\n", metadata.Version)
		fmt.Printf("  Path:     %s\n", catalog.Path(cfg.Catalog.DataDir, metadata.Version))
		fmt.Printf("  Source:   %s\n", metadata.Source)
		fmt.Printf("  Records:  %d\n", metadata.RecordCount)
		fmt.Printf("  Checksum: %s\n", metadata.Checksum)
		return nil
	},
}

var catalogVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify the integrity of a catalog artifact",
	Long: `Verify a catalog artifact: record count, stored checksum and minimum
record safeguard. Exits non-zero when any check fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		cat, err := catalog.Load(args[0], cfg.Catalog.MinRecords)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Catalog %s is intact\n", cat.Metadata.Version)
		fmt.Printf("  Source:     %s\n", cat.Metadata.Source)
		fmt.Printf("  Downloaded: %s\n", cat.Metadata.DownloadedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Records:    %d\n", cat.Metadata.RecordCount)
		fmt.Printf("  Checksum:   %s\n", cat.Metadata.Checksum)
		return nil
	},
}

// applyCatalogFlags overlays explicitly-set flags on the loaded config.
func applyCatalogFlags(cfg *model.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("source") {
		cfg.Catalog.PrimarySource = catalogSource
	}
	if cmd.Flags().Changed("catalog-version") {
		cfg.Catalog.Version = catalogVersion
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.Catalog.DataDir = catalogDataDir
	}
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogBuildCmd)
	catalogCmd.AddCommand(catalogVerifyCmd)

	catalogBuildCmd.Flags().StringVar(&catalogSource, "source", "ibge", "primary municipality source (ibge, brasilapi)")
	catalogBuildCmd.Flags().StringVar(&catalogVersion, "catalog-version", "v1", "catalog version label")
	catalogBuildCmd.Flags().StringVar(&catalogDataDir, "data-dir", "data", "directory for catalog artifacts")
	catalogBuildCmd.Flags().BoolVar(&catalogRefresh, "refresh", false, "overwrite an existing artifact")
}
