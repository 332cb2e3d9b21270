package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/lazypower/rote/internal/config"
	"github.com/lazypower/rote/internal/scheduler"
	"github.com/lazypower/rote/internal/store"
	"github.com/spf13/cobra"
)

// openService opens the database and builds a scheduling service the
// way the server does, honoring ROTE_CONFIG and ROTE_DB.
func openService() (*store.DB, *scheduler.Service, error) {
	cfg, err := config.Load(os.Getenv("ROTE_CONFIG"))
	if err != nil {
		return nil, nil, err
	}
	params, err := cfg.SchedulerParams()
	if err != nil {
		return nil, nil, fmt.Errorf("scheduler config: %w", err)
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath = os.Getenv("ROTE_DB")
	}
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, nil, err
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, scheduler.New(db, params), nil
}

// --- init command ---

var initUser string

var initCmd = &cobra.Command{
	Use:   "init [item-id]",
	Short: "Register a memory item for scheduling",
	Long:  "Register an item in the new state. With no argument an id is generated. Registering an existing item is a no-op.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	db, sched, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	itemID := ""
	if len(args) > 0 {
		itemID = args[0]
	}

	item, err := sched.InitializeItem(itemID, initUser)
	if err != nil {
		return fmt.Errorf("initialize item: %w", err)
	}

	fmt.Printf("%s  state=%s stability=%.2f difficulty=%.2f\n",
		item.ID, item.State, item.Stability, item.Difficulty)
	return nil
}

// --- due command ---

var (
	dueUser  string
	dueLimit int
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List items due for review",
	RunE:  runDue,
}

func runDue(cmd *cobra.Command, args []string) error {
	db, sched, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	items, err := sched.Due(dueUser, dueLimit, time.Now())
	if err != nil {
		return fmt.Errorf("due items: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("Nothing due.")
		return nil
	}

	for _, item := range items {
		overdue := ""
		if item.NextReview != nil {
			days := time.Since(*item.NextReview).Hours() / 24
			if days >= 1 {
				overdue = fmt.Sprintf(" (%.0fd overdue)", days)
			}
		}
		fmt.Printf("%s  %s%s\n", item.ID, item.State, overdue)
	}
	return nil
}

// --- stats command ---

var (
	statsUser   string
	statsWindow int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	db, sched, err := openService()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := sched.Statistics(statsUser, statsWindow, time.Now())
	if err != nil {
		return fmt.Errorf("statistics: %w", err)
	}

	fmt.Printf("Last %d days for %s:\n", statsWindow, statsUser)
	fmt.Printf("  reviews:   %d\n", stats.TotalReviews)
	if stats.AvgRating != nil {
		fmt.Printf("  avg grade: %.2f\n", *stats.AvgRating)
	}
	if stats.RetentionRate != nil {
		fmt.Printf("  retention: %.0f%%\n", *stats.RetentionRate*100)
	}
	fmt.Printf("  lapses:    %d\n", stats.AgainCount)
	fmt.Printf("  due now:   %d\n", stats.DueCount)
	fmt.Printf("  unseen:    %d\n", stats.NewCount)
	return nil
}

func init() {
	initCmd.Flags().StringVarP(&initUser, "user", "u", "default", "User the item belongs to")

	dueCmd.Flags().StringVarP(&dueUser, "user", "u", "default", "User whose queue to list")
	dueCmd.Flags().IntVarP(&dueLimit, "limit", "n", 20, "Maximum number of items")

	statsCmd.Flags().StringVarP(&statsUser, "user", "u", "default", "User to report on")
	statsCmd.Flags().IntVarP(&statsWindow, "window", "w", 30, "Window in days")
}
