package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/sync"
)

// ImportCommand merges patch files into the local category databases.
type ImportCommand struct {
	Category   string
	DataDir    string
	PatchesDir string
	Files      []string
}

// NewImportCommand creates a new ImportCommand
func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

// ParseFlags parses command line flags
func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)

	cfg := config.NewConfig()
	fs.StringVar(&cmd.Category, "category", "", "Category of the patch files (default: derived from each file name)")
	fs.StringVar(&cmd.DataDir, "data-dir", cfg.Database.DataDir, "Directory holding the hub and category databases")
	fs.StringVar(&cmd.PatchesDir, "patches-dir", cfg.Sync.PatchesDir, "Directory patch exports are written into")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options] <patch-file> [<patch-file>...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Merge patch files into the local category databases.\n\n")
		fmt.Fprintf(os.Stderr, "Patches apply idempotently with last-write-wins per row; re-importing\n")
		fmt.Fprintf(os.Stderr, "a file is harmless. A patch produced by a different schema generation\n")
		fmt.Fprintf(os.Stderr, "is rejected without applying anything.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import bookmarks-1722429126000-aabbccdd.abp.gz\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -category bookmarks backup.abp\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import patches/*.abp.gz\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Files = fs.Args()
	if len(cmd.Files) == 0 {
		fs.Usage()
		return fmt.Errorf("no patch files given")
	}

	return nil
}

// Run executes the import command
func (cmd *ImportCommand) Run() error {
	fmt.Println("📥 Patch import")
	fmt.Println("===============")

	hubCtx, err := openHub(cmd.DataDir)
	if err != nil {
		return err
	}
	defer hubCtx.Close()

	// Resolve each file's category up front so a typo fails before
	// anything is merged.
	byCategory := make(map[sync.Category][]string)
	var order []sync.Category
	for _, file := range cmd.Files {
		def, err := cmd.categoryOf(file)
		if err != nil {
			return err
		}
		if _, seen := byCategory[def.Category]; !seen {
			order = append(order, def.Category)
		}
		byCategory[def.Category] = append(byCategory[def.Category], file)
	}

	ctx := context.Background()

	for _, category := range order {
		def, _ := sync.Lookup(category)
		db, engine, err := openEngine(cmd.DataDir, cmd.PatchesDir, def, hubCtx.deviceID)
		if err != nil {
			return err
		}

		for _, file := range byCategory[category] {
			stats, err := engine.ApplyPatch(ctx, file)
			if err != nil {
				db.Close()
				if errors.Is(err, sync.ErrSchemaMismatch) {
					return fmt.Errorf("%s was produced by a different schema generation; upgrade both sides to the same version", filepath.Base(file))
				}
				return fmt.Errorf("failed to apply %s: %w", filepath.Base(file), err)
			}

			if stats.Violations > 0 {
				fmt.Printf("  ✅ %s: %d entries (%d row(s) dropped by repair)\n",
					filepath.Base(file), stats.Entries, stats.Violations)
			} else {
				fmt.Printf("  ✅ %s: %d entries\n", filepath.Base(file), stats.Entries)
			}
		}

		db.Close()
	}

	fmt.Println("\n✅ Import complete")
	return nil
}

// categoryOf resolves the category of one patch file, either from the
// -category flag or from the <category>- prefix of its name.
func (cmd *ImportCommand) categoryOf(file string) (sync.CategoryDef, error) {
	if cmd.Category != "" {
		return sync.ParseCategory(cmd.Category)
	}

	base := filepath.Base(file)
	idx := strings.Index(base, "-")
	if idx <= 0 {
		return sync.CategoryDef{}, fmt.Errorf("cannot derive category from %q; pass -category", base)
	}
	def, err := sync.ParseCategory(base[:idx])
	if err != nil {
		return sync.CategoryDef{}, fmt.Errorf("cannot derive category from %q: %w", base, err)
	}
	return def, nil
}
