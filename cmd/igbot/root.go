package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"igbot/internal/dispatch"
	"igbot/internal/ledger"
	"igbot/pkg/auth"
	"igbot/pkg/checkpoint"
	"igbot/pkg/config"
	errs "igbot/pkg/errors"
	"igbot/pkg/instagram"
	"igbot/pkg/logger"
	"igbot/pkg/metrics"
	"igbot/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
	verbose    bool

	// Workflow flags
	username      string
	password      string
	proxyAddr     string
	message       string
	listFile      string
	amount        int
	photo         string
	workflow      int
	metricsAddr   string
	ledgerBackend string
)

// rootCmd shows the workflow menu and runs the chosen workflow
var rootCmd = &cobra.Command{
	Use:   "igbot [users or hashtags...]",
	Short: "Instagram account automation from the command line",
	Long: `igbot logs into an Instagram account and runs one automation workflow:
messaging users from a list or CSV file, welcoming new followers, replying to
direct messages, reposting the best photos of other users, following users
by hashtag, unfollowing non-followers and uploading a story photo.

Credentials come from the flags, the environment, the config file or the
secret.txt file (username:NAME and password:SECRET lines).`,
	Example: `  # Pick a workflow from the menu
  igbot -u myaccount -p secret

  # Repost the two best photos of a random user from the pool
  igbot --workflow 7 --amount 2

  # Message each listed user
  igbot --workflow 2 --message "Hello" alice bob`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			logLevel = "error"
		} else if verbose {
			logLevel = "debug"
		}

		if !quiet && cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
	RunE: runWorkflow,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igbot.yaml or $HOME/.igbot.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress logs except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs")

	rootCmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	rootCmd.Flags().StringVar(&proxyAddr, "proxy", "", "http(s) or socks5 proxy address")
	rootCmd.Flags().StringVar(&message, "message", "", "message text (default \""+config.DefaultMessage+"\")")
	rootCmd.Flags().StringVar(&listFile, "file", "", "file with one username per line")
	rootCmd.Flags().IntVar(&amount, "amount", 0, "number of photos to repost (default 1)")
	rootCmd.Flags().StringVar(&photo, "photo", "", "photo path for the story upload")
	rootCmd.Flags().IntVarP(&workflow, "workflow", "w", -1, "workflow number, skips the menu")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	rootCmd.Flags().StringVar(&ledgerBackend, "ledger-backend", "", "posted media ledger (file, memory, sqlite)")

	rootCmd.SetVersionTemplate(`igbot {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the config file, environment and the flags that were set
func loadConfig() (*config.Config, error) {
	flags := map[string]interface{}{
		"username":       username,
		"password":       password,
		"proxy":          proxyAddr,
		"message":        message,
		"amount":         amount,
		"ledger-backend": ledgerBackend,
		"log-level":      logLevel,
		"metrics-addr":   metricsAddr,
	}

	path := configFile
	if path == "" {
		path = config.FindConfigFile()
	}
	return config.Load(path, flags)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := loadConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		metrics.StartServer(ctx, cfg.Metrics.Addr)
	}

	prompt := ui.NewPrompter(os.Stdin, os.Stdout, cfg.Workflow.PromptAttempts)
	d := &dispatch.Dispatcher{
		Config:   cfg,
		Prompt:   prompt,
		Notifier: ui.NewNotifier(cfg.Notifications),
		Logger:   log,
		Out:      os.Stdout,
	}

	wf := dispatch.Workflow(workflow)
	if workflow < 0 {
		d.PrintMenu()
		wf, err = d.Choose()
		if err != nil {
			ui.PrintError("Invalid Input")
			os.Exit(1)
		}
	}

	account, err := resolveAccount(cfg, log)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNoCredentials):
			ui.PrintError("secret.txt file not found.")
		case errors.Is(err, errs.ErrMalformedCredentials):
			ui.PrintError("secret.txt is not formatted correctly.")
		default:
			ui.PrintError("Failed to resolve credentials", err.Error())
		}
		os.Exit(1)
	}
	cfg.Account.Proxy = account.Proxy

	client, err := instagram.NewClient(instagram.OptionsFromConfig(cfg, log))
	if err != nil {
		ui.PrintError("Failed to create client", err.Error())
		os.Exit(1)
	}
	d.Client = client

	led, err := ledger.Open(cfg.Ledger, cfg.Files.PostedMedia)
	if err != nil {
		ui.PrintError("Failed to open ledger", err.Error())
		os.Exit(1)
	}
	defer led.Close()
	d.Ledger = led

	journal, err := checkpoint.NewManager(cfg.Ledger.JournalDir, account.Username)
	if err != nil {
		log.WithError(err).Warn("Repost journal unavailable, continuing without it")
	} else {
		journal.SetLogger(log)
		d.Journal = journal
	}

	req := dispatch.Request{Args: args, File: listFile, Photo: photo}
	if err := d.Run(ctx, wf, account.Credential(), req); err != nil {
		if errors.Is(err, errs.ErrEmptyPool) {
			ui.PrintWarning("No users to repost from", "add usernames to "+cfg.Files.UsernamePool+" or pass them as arguments")
		} else {
			log.WithError(err).WithField("workflow", wf.String()).Error("Workflow failed")
			ui.PrintError("Workflow failed", err.Error())
		}
		led.Close()
		os.Exit(1)
	}
	return nil
}

// resolveAccount combines the configured login with the credential stores
func resolveAccount(cfg *config.Config, log logger.Logger) (*auth.Account, error) {
	return auth.NewManager(cfg.Account.SecretFile, log).Resolve(auth.Account{
		Username: cfg.Account.Username,
		Password: cfg.Account.Password,
		Proxy:    cfg.Account.Proxy,
	})
}
