package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igbot/internal/ledger"
	"igbot/pkg/social"
	"igbot/pkg/storage"
	"igbot/pkg/ui"
)

// ledgerCmd represents the ledger command
var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the record of reposted media",
	Long: `Inspect and maintain the record of media that has already been reposted.

The backend is chosen by ledger.backend in the config file or --ledger-backend:
  - file    posted_medias.txt, one media id per line (default)
  - sqlite  a SQLite database, safe to share between runs on one machine
  - memory  nothing is kept between runs`,
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded media ids in insertion order",
	Args:  cobra.NoArgs,
	Run:   runLedgerList,
}

var ledgerCheckCmd = &cobra.Command{
	Use:   "check <media-id>",
	Short: "Report whether a media id was already reposted",
	Args:  cobra.ExactArgs(1),
	Run:   runLedgerCheck,
}

var ledgerAddCmd = &cobra.Command{
	Use:   "add <media-id>",
	Short: "Record a media id without reposting it",
	Args:  cobra.ExactArgs(1),
	Run:   runLedgerAdd,
}

var ledgerImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Copy a posted media file into the SQLite ledger",
	Long: `Copy every id of a posted media file (default: files.posted_media) into
the SQLite ledger at ledger.sqlite_path. Ids already present are skipped.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLedgerImport,
}

func init() {
	ledgerCmd.PersistentFlags().StringVar(&ledgerBackend, "ledger-backend", "", "posted media ledger (file, memory, sqlite)")
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd)
	ledgerCmd.AddCommand(ledgerCheckCmd)
	ledgerCmd.AddCommand(ledgerAddCmd)
	ledgerCmd.AddCommand(ledgerImportCmd)
}

func openLedger() ledger.Ledger {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	led, err := ledger.Open(cfg.Ledger, cfg.Files.PostedMedia)
	if err != nil {
		ui.PrintError("Failed to open ledger", err.Error())
		os.Exit(1)
	}
	return led
}

func runLedgerList(cmd *cobra.Command, args []string) {
	led := openLedger()
	defer led.Close()

	ids, err := led.Load(cmd.Context())
	if err != nil {
		ui.PrintError("Failed to read ledger", err.Error())
		os.Exit(1)
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	ui.PrintInfo("Recorded media", fmt.Sprintf("%d", len(ids)))
}

func runLedgerCheck(cmd *cobra.Command, args []string) {
	led := openLedger()
	defer led.Close()

	ok, err := led.Contains(cmd.Context(), social.MediaID(args[0]))
	if err != nil {
		ui.PrintError("Failed to read ledger", err.Error())
		os.Exit(1)
	}
	if ok {
		ui.PrintSuccess("Media was uploaded earlier: " + args[0])
		return
	}
	ui.PrintWarning("Media not recorded", args[0])
}

func runLedgerAdd(cmd *cobra.Command, args []string) {
	led := openLedger()
	defer led.Close()

	ctx := cmd.Context()
	if err := led.Insert(ctx, social.MediaID(args[0])); err != nil {
		ui.PrintError("Failed to record media", err.Error())
		os.Exit(1)
	}
	if err := led.Flush(ctx); err != nil {
		ui.PrintError("Failed to flush ledger", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Recorded: " + args[0])
}

func runLedgerImport(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	src := cfg.Files.PostedMedia
	if len(args) > 0 {
		src = args[0]
	}
	lines, err := storage.ReadLines(src)
	if err != nil {
		ui.PrintError("Failed to read "+src, err.Error())
		os.Exit(1)
	}
	ids := make([]social.MediaID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, social.MediaID(line))
	}

	db, err := ledger.OpenSQLite(cfg.Ledger.SQLitePath)
	if err != nil {
		ui.PrintError("Failed to open SQLite ledger", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	added, err := db.Import(cmd.Context(), ids)
	if err != nil {
		ui.PrintError("Import failed", err.Error())
		os.Exit(1)
	}
	ui.PrintInfo("Imported", fmt.Sprintf("%d new of %d ids into %s", added, len(ids), cfg.Ledger.SQLitePath))
}
