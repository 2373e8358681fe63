package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/wesinator/and-bible/internal/config"
)

// DeviceListCommand lists the registered devices.
type DeviceListCommand struct {
	DataDir string
}

// NewDeviceListCommand creates a new DeviceListCommand
func NewDeviceListCommand() *DeviceListCommand {
	return &DeviceListCommand{}
}

// ParseFlags parses command line flags
func (cmd *DeviceListCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("device-list", flag.ExitOnError)

	cfg := config.NewConfig()
	fs.StringVar(&cmd.DataDir, "data-dir", cfg.Database.DataDir, "Directory holding the hub and category databases")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s device-list [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List registered devices. Tokens are never shown here; if one is\n")
		fmt.Fprintf(os.Stderr, "lost, delete the device and register it again.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	return nil
}

// Run executes the device-list command
func (cmd *DeviceListCommand) Run() error {
	hubCtx, err := openHub(cmd.DataDir)
	if err != nil {
		return err
	}
	defer hubCtx.Close()

	devices, err := hubCtx.devices.List()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No devices registered. Use 'device-add' to register one.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Created", "Last Seen"})

	for _, device := range devices {
		lastSeen := "never"
		if device.LastSeenAt != nil {
			lastSeen = humanize.Time(*device.LastSeenAt)
		}
		table.Append([]string{
			device.ID,
			device.Name,
			device.CreatedAt.Format("2006-01-02"),
			lastSeen,
		})
	}

	table.Render()
	return nil
}
