package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/wesinator/and-bible/internal/config"
)

// DeviceAddCommand registers a device and prints its API token.
type DeviceAddCommand struct {
	Name    string
	DataDir string
}

// NewDeviceAddCommand creates a new DeviceAddCommand
func NewDeviceAddCommand() *DeviceAddCommand {
	return &DeviceAddCommand{}
}

// ParseFlags parses command line flags
func (cmd *DeviceAddCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("device-add", flag.ExitOnError)

	cfg := config.NewConfig()
	fs.StringVar(&cmd.Name, "name", "", "Human-readable device name (required)")
	fs.StringVar(&cmd.DataDir, "data-dir", cfg.Database.DataDir, "Directory holding the hub and category databases")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s device-add -name <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Register a device and issue its API token.\n\n")
		fmt.Fprintf(os.Stderr, "The token is printed exactly once; it is stored hashed nowhere and\n")
		fmt.Fprintf(os.Stderr, "cannot be recovered later. Devices send it as a Bearer token.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s device-add -name \"Pixel 8\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s device-add -name tablet -data-dir /srv/sync/data\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(cmd.Name) == "" {
		fs.Usage()
		return fmt.Errorf("device name is required (use -name)")
	}

	return nil
}

// Run executes the device-add command
func (cmd *DeviceAddCommand) Run() error {
	hubCtx, err := openHub(cmd.DataDir)
	if err != nil {
		return err
	}
	defer hubCtx.Close()

	device, err := hubCtx.devices.Register(strings.TrimSpace(cmd.Name))
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}

	fmt.Printf("✅ Registered device %q\n\n", device.Name)
	fmt.Printf("   ID:    %s\n", device.ID)
	fmt.Printf("   Token: %s\n\n", device.Token)
	fmt.Println("⚠️  The token is shown only this once. Configure the device with:")
	fmt.Printf("    Authorization: Bearer %s\n", device.Token)

	return nil
}
