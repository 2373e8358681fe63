// Command seed fills the hub's category databases with sample study data:
// labels, bookmarks, study pad notes, reading plan progress and workspaces.
// Useful for trying the hub out before pointing real devices at it.
// Usage: go run cmd/seed/main.go [-data-dir ./data] [-fresh]
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/wesinator/and-bible/internal/config"
	"github.com/wesinator/and-bible/internal/database"
	"github.com/wesinator/and-bible/internal/database/bookmarks"
	"github.com/wesinator/and-bible/internal/database/readingplans"
	"github.com/wesinator/and-bible/internal/database/settings"
	"github.com/wesinator/and-bible/internal/database/workspaces"
	"github.com/wesinator/and-bible/internal/entities"
	"github.com/wesinator/and-bible/internal/sync"
)

func main() {
	dataDir := flag.String("data-dir", config.DefaultDataDir, "directory holding the hub database files")
	fresh := flag.Bool("fresh", false, "remove existing category databases before seeding")
	flag.Parse()

	log.Printf("Seeding sample data under %s...", *dataDir)

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbCfg := config.Database{DataDir: *dataDir}

	if *fresh {
		for _, def := range sync.Categories() {
			path := dbCfg.CategoryPath(string(def.Category))
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				log.Fatalf("Failed to remove %s: %v", path, err)
			}
		}
	}

	// The hub database carries the device identity; seeded rows are captured
	// into the change log under it, so a later export picks them up.
	hub, err := database.OpenHub(dbCfg.HubPath())
	if err != nil {
		log.Fatalf("Failed to open hub database: %v", err)
	}
	defer hub.Close()

	deviceID, err := sync.EnsureDeviceID(settings.NewRepository(hub.DB))
	if err != nil {
		log.Fatalf("Failed to resolve device id: %v", err)
	}

	for _, def := range sync.Categories() {
		db, err := database.Open(dbCfg.CategoryPath(string(def.Category)), def, deviceID)
		if err != nil {
			log.Fatalf("Failed to open %s database: %v", def.Category, err)
		}

		switch def.Category {
		case sync.CategoryBookmarks:
			seedBookmarks(bookmarks.NewRepository(db.DB))
		case sync.CategoryReadingPlans:
			seedReadingPlans(readingplans.NewRepository(db.DB))
		case sync.CategoryWorkspaces:
			seedWorkspaces(workspaces.NewRepository(db.DB))
		}

		db.Close()
	}

	log.Println("Sample data seeded successfully!")
}

// bookmarkConfig holds one bookmark plus the names of the labels to attach.
type bookmarkConfig struct {
	Bookmark   entities.Bookmark
	LabelNames []string
}

func seedBookmarks(repo *bookmarks.Repository) {
	labels := createLabels(repo)

	for _, cfg := range sampleBookmarks() {
		if len(cfg.LabelNames) > 0 {
			if label, ok := labels[cfg.LabelNames[0]]; ok {
				cfg.Bookmark.PrimaryLabelID = &label.ID
			}
		}
		if err := repo.CreateBookmark(&cfg.Bookmark); err != nil {
			log.Printf("Failed to save bookmark at ordinal %d: %v", cfg.Bookmark.OrdinalStart, err)
			continue
		}
		log.Printf("Saved: bookmark at ordinal %d (%d labels)", cfg.Bookmark.OrdinalStart, len(cfg.LabelNames))

		for i, name := range cfg.LabelNames {
			if label, ok := labels[name]; ok {
				if err := repo.AddLabel(cfg.Bookmark.ID, label.ID, i); err != nil {
					log.Printf("Failed to attach label %s: %v", name, err)
				}
			}
		}
	}

	addStudyPadEntries(repo, labels)
}

func createLabels(repo *bookmarks.Repository) map[string]entities.Label {
	configs := []struct {
		name  string
		color int // signed ARGB, the form the reader apps store
	}{
		{"Favourites", -65536},  // #FFFF0000
		{"Promises", -10496},    // #FFFFD700
		{"Prayer", -16776961},   // #FF0000FF
		{"Study", -16711936},    // #FF00FF00
	}

	labels := make(map[string]entities.Label)
	for _, cfg := range configs {
		label, err := repo.CreateLabel(cfg.name, cfg.color)
		if err != nil {
			log.Printf("Failed to create label %s: %v", cfg.name, err)
			continue
		}
		labels[cfg.name] = *label
	}
	return labels
}

func sampleBookmarks() []bookmarkConfig {
	// Ordinals follow KJV versification, so the list reads in canon order.
	return []bookmarkConfig{
		{
			LabelNames: []string{"Favourites"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  14236, // Psalm 23:1
				OrdinalEnd:    14236,
				Versification: "KJV",
				WholeVerse:    true,
				Notes:         "The LORD is my shepherd",
			},
		},
		{
			LabelNames: []string{"Study"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  16444, // Proverbs 3:5-6
				OrdinalEnd:    16445,
				Versification: "KJV",
				WholeVerse:    true,
			},
		},
		{
			LabelNames: []string{"Promises", "Favourites"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  18279, // Isaiah 41:10
				OrdinalEnd:    18279,
				Versification: "KJV",
				WholeVerse:    true,
				Notes:         "Fear thou not; for I am with thee",
			},
		},
		{
			LabelNames: []string{"Promises"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  19638, // Jeremiah 29:11
				OrdinalEnd:    19638,
				Versification: "KJV",
				WholeVerse:    true,
			},
		},
		{
			LabelNames: []string{"Prayer"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  23355, // Matthew 6:33
				OrdinalEnd:    23355,
				Versification: "KJV",
				WholeVerse:    true,
				Notes:         "Seek ye first the kingdom of God",
			},
		},
		{
			LabelNames: []string{"Favourites"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  26231, // John 3:16
				OrdinalEnd:    26231,
				Versification: "KJV",
				WholeVerse:    true,
				Notes:         "For God so loved the world",
			},
		},
		{
			LabelNames: []string{"Promises", "Study"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  28124, // Romans 8:28
				OrdinalEnd:    28124,
				Versification: "KJV",
				WholeVerse:    true,
				Notes:         "All things work together for good",
			},
		},
		{
			LabelNames: []string{"Favourites"},
			Bookmark: entities.Bookmark{
				OrdinalStart:  29563, // Philippians 4:13
				OrdinalEnd:    29563,
				Versification: "KJV",
				WholeVerse:    true,
			},
		},
	}
}

func addStudyPadEntries(repo *bookmarks.Repository, labels map[string]entities.Label) {
	study, ok := labels["Study"]
	if !ok {
		return
	}

	entries := []struct {
		text   string
		indent int
	}{
		{"Trust vs. understanding in Proverbs 3", 0},
		{"Hebrew 'batach' - to lean on, feel secure", 1},
		{"Cross reference: Romans 8:28 on providence", 0},
	}

	for i, e := range entries {
		if _, err := repo.CreateStudyPadEntry(study.ID, e.text, i, e.indent); err != nil {
			log.Printf("Failed to add study pad entry: %v", err)
			continue
		}
		log.Printf("Added study pad entry: %s", e.text)
	}
}

func seedReadingPlans(repo *readingplans.Repository) {
	// Start a one-year plan three weeks back with the first days done.
	start := time.Now().AddDate(0, 0, -21).UnixMilli()
	if _, err := repo.StartPlan("y1ntpspr", start); err != nil {
		log.Printf("Failed to start plan y1ntpspr: %v", err)
		return
	}
	log.Printf("Started plan: y1ntpspr")

	for day := 1; day <= 21; day++ {
		// Bitmask of finished readings; day 21 is half done.
		done := 0b111
		if day == 21 {
			done = 0b001
		}
		if err := repo.MarkDayRead("y1ntpspr", day, done); err != nil {
			log.Printf("Failed to mark day %d: %v", day, err)
		}
	}
	if err := repo.SetCurrentDay("y1ntpspr", 21); err != nil {
		log.Printf("Failed to set current day: %v", err)
	}
	log.Printf("Marked 21 days of y1ntpspr")
}

// windowConfig describes one window and the page it shows.
type windowConfig struct {
	document string
	key      string
	pinned   bool
}

func seedWorkspaces(repo *workspaces.Repository) {
	configs := []struct {
		name    string
		windows []windowConfig
	}{
		{
			name: "Morning Study",
			windows: []windowConfig{
				{"KJV", "Ps.23.1", true},
				{"ASV", "Ps.23.1", false},
			},
		},
		{
			name: "Sermon Prep",
			windows: []windowConfig{
				{"KJV", "Rom.8.28", false},
			},
		},
	}

	for i, cfg := range configs {
		workspace, err := repo.CreateWorkspace(cfg.name, i)
		if err != nil {
			log.Printf("Failed to create workspace %s: %v", cfg.name, err)
			continue
		}

		for j, w := range cfg.windows {
			window, err := repo.CreateWindow(workspace.ID, j, w.pinned, true)
			if err != nil {
				log.Printf("Failed to create window in %s: %v", cfg.name, err)
				continue
			}
			if err := repo.SetPage(window.ID, w.document, w.key); err != nil {
				log.Printf("Failed to set page for window in %s: %v", cfg.name, err)
			}
		}
		log.Printf("Saved: workspace %s (%d windows)", cfg.name, len(cfg.windows))
	}
}
