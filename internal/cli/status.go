package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/sync"
)

// StatusCommand prints a synchronization overview.
type StatusCommand struct {
	DataDir    string
	PatchesDir string
}

// NewStatusCommand creates a new StatusCommand
func NewStatusCommand() *StatusCommand {
	return &StatusCommand{}
}

// ParseFlags parses command line flags
func (cmd *StatusCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)

	cfg := config.NewConfig()
	fs.StringVar(&cmd.DataDir, "data-dir", cfg.Database.DataDir, "Directory holding the hub and category databases")
	fs.StringVar(&cmd.PatchesDir, "patches-dir", cfg.Sync.PatchesDir, "Directory patch exports are written into")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s status [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Show pending changes, export watermarks and stored patches per\n")
		fmt.Fprintf(os.Stderr, "category, plus the registered devices.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	return nil
}

// Run executes the status command
func (cmd *StatusCommand) Run() error {
	hubCtx, err := openHub(cmd.DataDir)
	if err != nil {
		return err
	}
	defer hubCtx.Close()

	fmt.Println("📊 Sync status")
	fmt.Println("==============")
	fmt.Printf("🆔 Device: %s\n\n", hubCtx.deviceID)

	patchCounts, err := hubCtx.patches.CountByCategory()
	if err != nil {
		return fmt.Errorf("failed to count patches: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Pending", "Watermark", "Patches"})

	for _, def := range sync.Categories() {
		db, engine, err := openEngine(cmd.DataDir, cmd.PatchesDir, def, hubCtx.deviceID)
		if err != nil {
			return err
		}

		pending, err := engine.CountPending()
		if err != nil {
			db.Close()
			return fmt.Errorf("failed to count pending changes for %s: %w", def.Category, err)
		}
		watermark, err := engine.Watermark()
		db.Close()
		if err != nil {
			return fmt.Errorf("failed to read watermark for %s: %w", def.Category, err)
		}

		exportedAt := "never"
		if watermark > 0 {
			exportedAt = time.UnixMilli(watermark).Format("2006-01-02 15:04:05")
		}

		table.Append([]string{
			string(def.Category),
			strconv.FormatInt(pending, 10),
			exportedAt,
			strconv.FormatInt(patchCounts[string(def.Category)], 10),
		})
	}

	table.Render()

	devices, err := hubCtx.devices.List()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("\nNo devices registered. Use 'device-add' to register one.")
		return nil
	}

	fmt.Printf("\n📱 Registered devices:\n")
	deviceTable := tablewriter.NewWriter(os.Stdout)
	deviceTable.SetHeader([]string{"ID", "Name", "Created", "Last Seen"})

	for _, device := range devices {
		lastSeen := "never"
		if device.LastSeenAt != nil {
			lastSeen = humanize.Time(*device.LastSeenAt)
		}
		deviceTable.Append([]string{
			device.ID,
			device.Name,
			device.CreatedAt.Format("2006-01-02"),
			lastSeen,
		})
	}

	deviceTable.Render()
	return nil
}
