package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/sync"
)

// ExportCommand exports pending changes into patch files.
type ExportCommand struct {
	Category   string
	DataDir    string
	PatchesDir string
}

// NewExportCommand creates a new ExportCommand
func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	cfg := config.NewConfig()
	fs.StringVar(&cmd.Category, "category", "all", "Category to export (bookmarks, readingplans, workspaces or all)")
	fs.StringVar(&cmd.DataDir, "data-dir", cfg.Database.DataDir, "Directory holding the hub and category databases")
	fs.StringVar(&cmd.PatchesDir, "patches-dir", cfg.Sync.PatchesDir, "Directory to write patch files into")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export pending local changes into compressed patch files.\n\n")
		fmt.Fprintf(os.Stderr, "Each category with changes newer than its watermark produces one\n")
		fmt.Fprintf(os.Stderr, "<category>-<watermark>-<device>.abp.gz file and advances the watermark.\n")
		fmt.Fprintf(os.Stderr, "Categories with nothing pending are skipped.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -category bookmarks\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -patches-dir /srv/sync/patches\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	return nil
}

// Run executes the export command
func (cmd *ExportCommand) Run() error {
	fmt.Println("📦 Patch export")
	fmt.Println("===============")

	defs, err := resolveCategories(cmd.Category)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cmd.PatchesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create patches directory %s: %w", cmd.PatchesDir, err)
	}

	hubCtx, err := openHub(cmd.DataDir)
	if err != nil {
		return err
	}
	defer hubCtx.Close()

	fmt.Printf("🆔 Device: %s\n", hubCtx.deviceID)

	ctx := context.Background()
	exported := 0

	for _, def := range defs {
		db, engine, err := openEngine(cmd.DataDir, cmd.PatchesDir, def, hubCtx.deviceID)
		if err != nil {
			return err
		}

		patch, err := engine.CreatePatch(ctx)
		db.Close()
		if err != nil {
			return fmt.Errorf("failed to export %s: %w", def.Category, err)
		}

		if patch == nil {
			fmt.Printf("  ⏭️  %s: no changes\n", def.Category)
			continue
		}

		if _, err := hubCtx.patches.Record(string(patch.Category), patch.FileName, hubCtx.deviceID,
			patch.SizeBytes, patch.EntryCount); err != nil {
			return fmt.Errorf("failed to record %s: %w", patch.FileName, err)
		}

		fmt.Printf("  ✅ %s: %s (%d entries, %s)\n", def.Category, patch.FileName,
			patch.EntryCount, humanize.Bytes(uint64(patch.SizeBytes)))
		exported++
	}

	if exported == 0 {
		fmt.Println("\nℹ️  Nothing to export")
	} else {
		fmt.Printf("\n✅ Exported %d patch file(s) to %s\n", exported, cmd.PatchesDir)
	}

	return nil
}

// resolveCategories expands "all" into every registered category.
func resolveCategories(name string) ([]sync.CategoryDef, error) {
	if name == "all" || name == "" {
		return sync.Categories(), nil
	}
	def, err := sync.ParseCategory(name)
	if err != nil {
		return nil, err
	}
	return []sync.CategoryDef{def}, nil
}
