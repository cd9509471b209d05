package ui

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/config"
	"github.com/johnh2o2/coparent-sub000/internal/db"
	"github.com/johnh2o2/coparent-sub000/internal/llm"
	"github.com/johnh2o2/coparent-sub000/internal/schedule"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	config  *config.Config
	root    *cobra.Command
	store   *db.SQLite
	noColor bool
}

// NewApp creates a new CLI application with the given config.
func NewApp(cfg *config.Config) *App {
	a := &App{config: cfg}

	a.root = &cobra.Command{
		Use:   "coparent",
		Short: "A CLI tool for managing a shared childcare schedule",
		Long: `Coparent keeps a shared childcare schedule for separated parents.

Tell it what changed in plain language ("mom takes the kids next week"),
or manage care blocks directly with add, remove, and list.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runWeek(weekOptions{})
		},
	}

	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable color output")
	a.root.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if a.noColor {
			DisableColor()
		}
	}

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.tellCmd())
	a.root.AddCommand(a.addCmd())
	a.root.AddCommand(a.removeCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.weekCmd())
	a.root.AddCommand(a.auditCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("coparent %s (commit: %s)\n", Version, Commit)
		},
	}
}

// repo opens the SQLite store on first use and caches it for Close.
func (a *App) repo() (*db.SQLite, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := db.New(a.config.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.store = store
	return store, nil
}

// service builds the schedule service. Commands that never talk to the
// model pass withLLM=false and skip client construction, so add/list/week
// work without Copilot credentials or a running Ollama.
func (a *App) service(withLLM bool) (*schedule.Service, error) {
	store, err := a.repo()
	if err != nil {
		return nil, err
	}

	var client llm.Client
	if withLLM {
		client, err = llm.NewClient(a.config.LLM.Provider, a.config.LLM.Model, a.config.LLM.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating LLM client: %w", err)
		}
	}

	return schedule.New(client, a.config, store, store)
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases the database handle, if one was opened.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
