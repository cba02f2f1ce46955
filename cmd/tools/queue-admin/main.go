// cmd/tools/queue-admin/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cotacao-workers/internal/common/config"
	"cotacao-workers/internal/common/database"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/quotation"
	"cotacao-workers/internal/repository"
	"cotacao-workers/internal/roundrobin"
)

type queueEntry struct {
	Position int                     `json:"position"`
	SellerID string                  `json:"sellerId"`
	Name     string                  `json:"name,omitempty"`
	Status   roundrobin.SellerStatus `json:"status,omitempty"`
	Eligible bool                    `json:"eligible"`
	Current  bool                    `json:"current"`
}

type queueView struct {
	QueueID      int64        `json:"queueId"`
	Pointer      int          `json:"pointer"`
	LastSellerID string       `json:"lastSellerId,omitempty"`
	Version      int64        `json:"version"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	Entries      []queueEntry `json:"entries"`
}

func main() {
	var configPath string
	global := flag.NewFlagSet("queue-admin", flag.ExitOnError)
	global.StringVar(&configPath, "config", "", "Path to config file (defaults to configs/config.yaml)")

	showCmd := flag.NewFlagSet("show", flag.ExitOnError)

	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	addSeller := addCmd.String("seller", "", "Seller ID to append to the queue")

	removeCmd := flag.NewFlagSet("remove", flag.ExitOnError)
	removeSeller := removeCmd.String("seller", "", "Seller ID to remove from the queue")

	reorderCmd := flag.NewFlagSet("reorder", flag.ExitOnError)
	reorderSellers := reorderCmd.String("sellers", "", "Comma-separated seller IDs in the new order")

	resetCmd := flag.NewFlagSet("reset", flag.ExitOnError)

	invalidateCmd := flag.NewFlagSet("invalidate-cache", flag.ExitOnError)
	invalidateCategory := invalidateCmd.String("category", "", "Only drop pricing rules of this category")

	global.Parse(os.Args[1:])
	args := global.Args()
	if len(args) < 1 {
		help()
		os.Exit(1)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured("warn", "console")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	admin := roundrobin.NewAdmin(roundrobin.NewPostgresStore(pg.DB, cfg.Assignment.QueueID), log)

	switch args[0] {
	case "show":
		showCmd.Parse(args[1:])
		err = show(ctx, admin, os.Stdout)

	case "add":
		addCmd.Parse(args[1:])
		if *addSeller == "" {
			fmt.Println("Error: -seller is required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		err = admin.AddParticipant(ctx, *addSeller)
		report(err, "Added seller %s", *addSeller)

	case "remove":
		removeCmd.Parse(args[1:])
		if *removeSeller == "" {
			fmt.Println("Error: -seller is required for remove.")
			removeCmd.Usage()
			os.Exit(1)
		}
		err = admin.RemoveParticipant(ctx, *removeSeller)
		report(err, "Removed seller %s", *removeSeller)

	case "reorder":
		reorderCmd.Parse(args[1:])
		queue := splitSellers(*reorderSellers)
		if len(queue) == 0 {
			fmt.Println("Error: -sellers is required for reorder.")
			reorderCmd.Usage()
			os.Exit(1)
		}
		err = admin.Reorder(ctx, queue)
		report(err, "Queue reordered: %s", strings.Join(queue, ", "))

	case "reset":
		resetCmd.Parse(args[1:])
		err = admin.ResetPointer(ctx)
		report(err, "Pointer reset; the next assignment goes to the first eligible seller")

	case "invalidate-cache":
		invalidateCmd.Parse(args[1:])
		err = invalidateCache(ctx, cfg, *invalidateCategory, log)
		report(err, "Reference data cache invalidated")

	default:
		help()
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func report(err error, format string, args ...interface{}) {
	if err == nil {
		fmt.Printf(format+"\n", args...)
	}
}

func splitSellers(raw string) []string {
	var out []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func show(ctx context.Context, admin *roundrobin.Admin, w io.Writer) error {
	state, sellers, err := admin.Show(ctx)
	if err != nil {
		return err
	}

	view := queueView{
		QueueID:      state.ID,
		Pointer:      state.Pointer,
		LastSellerID: state.LastSellerID,
		Version:      state.Version,
		UpdatedAt:    state.UpdatedAt,
		Entries:      make([]queueEntry, 0, len(state.Queue)),
	}
	for i, id := range state.Queue {
		entry := queueEntry{Position: i, SellerID: id, Current: i == state.Pointer}
		if s, ok := sellers[id]; ok {
			entry.Name = s.Name
			entry.Status = s.Status
			entry.Eligible = s.Eligible()
		}
		view.Entries = append(view.Entries, entry)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func invalidateCache(ctx context.Context, cfg *config.Config, category string, log logger.Logger) error {
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	ttl := time.Duration(cfg.Quotation.CacheTTLSeconds) * time.Second
	rules := repository.NewPricingRuleRepository(nil, rdb.Client, ttl, log)

	if category != "" {
		c, ok := quotation.ParseCategory(category)
		if !ok {
			return fmt.Errorf("unknown category %q", category)
		}
		return rules.Invalidate(ctx, c)
	}

	if err := rules.Invalidate(ctx); err != nil {
		return err
	}
	return repository.NewBlacklistRepository(nil, rdb.Client, ttl, log).Invalidate(ctx)
}

func help() {
	fmt.Println("Usage: queue-admin [-config path] <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  show                          Print the rotation with seller eligibility")
	fmt.Println("  add -seller <id>              Append a seller to the queue")
	fmt.Println("  remove -seller <id>           Remove a seller from the queue")
	fmt.Println("  reorder -sellers <a,b,c>      Replace the queue order; the pointer follows the last assigned seller")
	fmt.Println("  reset                         Move the pointer before the first position")
	fmt.Println("  invalidate-cache [-category]  Drop cached pricing rules and blacklist")
}
