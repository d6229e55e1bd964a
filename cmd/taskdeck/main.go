package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/taskdeck/internal/adapters/api"
	serveradapter "github.com/evanschultz/taskdeck/internal/adapters/server"
	"github.com/evanschultz/taskdeck/internal/adapters/storage/sqlite"
	"github.com/evanschultz/taskdeck/internal/app"
	"github.com/evanschultz/taskdeck/internal/assistant"
	"github.com/evanschultz/taskdeck/internal/backend"
	"github.com/evanschultz/taskdeck/internal/config"
	"github.com/evanschultz/taskdeck/internal/domain"
	"github.com/evanschultz/taskdeck/internal/platform"
	"github.com/evanschultz/taskdeck/internal/tui"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the part of *tea.Program the CLI drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the TUI program; tests swap it out.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, deps serveradapter.Dependencies) error {
	return serveradapter.Run(ctx, cfg, deps)
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// run builds the command tree and executes args against it.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	c := newCLI(stdout, stderr)
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return fang.Execute(ctx, root, fang.WithVersion(version))
}

// cli holds global flag state for one invocation.
type cli struct {
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	apiURL     string
	appName    string
	devMode    bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	c := &cli{
		stdout:  stdout,
		stderr:  stderr,
		appName: platform.DefaultAppName,
		devMode: version == "dev",
	}
	if envDev, ok := parseBoolEnv("TASKDECK_DEV_MODE"); ok {
		c.devMode = envDev
	}
	if envApp := strings.TrimSpace(os.Getenv("TASKDECK_APP_NAME")); envApp != "" {
		c.appName = envApp
	}
	return c
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskdeck",
		Short: "Terminal task board with an AI assistant",
		Long: `taskdeck is a terminal client for a task REST API.

Run it without a subcommand to open the board. Use "taskdeck serve" to run
the bundled reference backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runTUI(cmd.Context())
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to config TOML")
	pf.StringVar(&c.apiURL, "api", "", "task API base URL (overrides [api] base_url)")
	pf.StringVar(&c.appName, "app", c.appName, "application name for config/data path resolution")
	pf.BoolVar(&c.devMode, "dev", c.devMode, "use dev mode paths (<app>-dev)")

	root.AddCommand(
		c.serveCommand(),
		c.tasksCommand(),
		c.askCommand(),
		c.pathsCommand(),
		c.configCommand(),
	)
	return root
}

// runtimeEnv is the resolved state shared by every command flow.
type runtimeEnv struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
}

// close releases the logger; muted consoles stay quiet on failure.
func (e *runtimeEnv) close(stderr io.Writer) {
	if closeErr := e.logger.Close(); closeErr != nil && e.logger.shouldLogToSink(e.logger.consoleSink) {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
	}
}

// resolvePaths resolves per-OS locations for the selected app name.
func (c *cli) resolvePaths() (platform.Paths, error) {
	return platform.DefaultPathsWithOptions(platform.Options{
		AppName: c.appName,
		DevMode: c.devMode,
	})
}

// resolveConfigPath applies --config, then TASKDECK_CONFIG, then the platform default.
func (c *cli) resolveConfigPath(paths platform.Paths) string {
	if strings.TrimSpace(c.configPath) != "" {
		return c.configPath
	}
	if envPath := strings.TrimSpace(os.Getenv("TASKDECK_CONFIG")); envPath != "" {
		return envPath
	}
	return paths.ConfigPath
}

// bootstrap loads config, applies env and flag overrides, and configures logging.
func (c *cli) bootstrap(command string) (*runtimeEnv, error) {
	paths, err := c.resolvePaths()
	if err != nil {
		return nil, err
	}
	configPath := c.resolveConfigPath(paths)

	cfg, err := config.Load(configPath, config.Default(paths.DBPath))
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if envDB := strings.TrimSpace(os.Getenv("TASKDECK_DB_PATH")); envDB != "" {
		cfg.Server.DBPath = envDB
	}
	apiURL := strings.TrimSpace(c.apiURL)
	if apiURL == "" {
		apiURL = strings.TrimSpace(os.Getenv("TASKDECK_API_URL"))
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("resolve config: %w", err)
	}

	logger, err := newRuntimeLogger(c.stderr, c.appName, c.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	if command == "tui" {
		// The board owns the terminal; runtime logs go to the dev file only.
		logger.SetConsoleEnabled(false)
	}

	logger.Info("startup configuration resolved", "app", c.appName, "dev_mode", c.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Server.DBPath)
	logger.Info("configuration loaded", "config_path", configPath, "api", cfg.API.BaseURL, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Info("dev file logging enabled", "path", devPath)
	}
	return &runtimeEnv{
		paths:      paths,
		configPath: configPath,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// newService wires the REST gateway behind the application service.
func newService(env *runtimeEnv) (*app.Service, error) {
	timeout, err := env.cfg.APITimeout()
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Config{
		BaseURL: env.cfg.API.BaseURL,
		Timeout: timeout,
	}, api.WithLogger(env.logger.component("api")))
	if err != nil {
		return nil, fmt.Errorf("configure api client: %w", err)
	}
	return app.NewService(client)
}

// runTUI opens the task board.
func (c *cli) runTUI(ctx context.Context) error {
	env, err := c.bootstrap("tui")
	if err != nil {
		return err
	}
	defer env.close(c.stderr)

	svc, err := newService(env)
	if err != nil {
		return err
	}
	timeout, _ := env.cfg.APITimeout()
	filter, _ := domain.ParseFilter(env.cfg.UI.DefaultFilter)

	m := tui.NewModel(
		svc,
		tui.WithDefaultFilter(filter),
		tui.WithShowAssistant(env.cfg.UI.ShowAssistant),
		tui.WithShowDescriptions(env.cfg.UI.ShowDescriptions),
		tui.WithRequestTimeout(timeout),
	)
	env.logger.Info("starting tui program loop", "api", env.cfg.API.BaseURL, "filter", filter)
	if _, err := programFactory(m).Run(); err != nil {
		env.logger.Error("tui program terminated with error", "err", err)
		return fmt.Errorf("run tui program: %w", err)
	}
	env.logger.Info("command flow complete", "command", "tui")
	return nil
}

func (c *cli) serveCommand() *cobra.Command {
	var (
		bind        string
		dbPath      string
		interpreter string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference task backend (REST + MCP)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := c.bootstrap("serve")
			if err != nil {
				return err
			}
			defer env.close(c.stderr)

			if v := strings.TrimSpace(bind); v != "" {
				env.cfg.Server.Bind = v
			}
			if v := strings.TrimSpace(dbPath); v != "" {
				env.cfg.Server.DBPath = v
			}
			if v := strings.TrimSpace(interpreter); v != "" {
				env.cfg.Assistant.Interpreter = config.InterpreterKind(strings.ToLower(v))
			}
			if err := env.cfg.Validate(); err != nil {
				return fmt.Errorf("serve config: %w", err)
			}

			env.logger.Info("command flow start", "command", "serve")
			if err := c.runServe(cmd.Context(), env); err != nil {
				env.logger.Error("command flow failed", "command", "serve", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			env.logger.Info("command flow complete", "command", "serve")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "HTTP listen address (overrides [server] bind)")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database (overrides [server] db_path)")
	cmd.Flags().StringVar(&interpreter, "interpreter", "", "assistant interpreter: rules or groq")
	return cmd
}

// runServe opens storage and runs the HTTP+MCP server until ctx ends.
func (c *cli) runServe(ctx context.Context, env *runtimeEnv) error {
	dbPath := env.cfg.Server.DBPath
	env.logger.Info("opening sqlite repository", "db_path", dbPath)
	repo, err := sqlite.Open(dbPath)
	if err != nil {
		env.logger.Error("sqlite open failed", "db_path", dbPath, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			env.logger.Warn("sqlite close failed", "db_path", dbPath, "err", closeErr)
		}
	}()
	env.logger.Info("sqlite repository ready", "db_path", dbPath, "migrations", "ensured")

	tasks, err := backend.NewTaskService(repo)
	if err != nil {
		return err
	}
	commands := backend.NewCommandService(newInterpreter(env), backend.NewDispatcher(tasks))
	env.logger.Debug("assistant interpreter selected", "interpreter", env.cfg.Assistant.Interpreter)

	return serveCommandRunner(ctx, serveradapter.Config{
		HTTPBind:      env.cfg.Server.Bind,
		APIEndpoint:   env.cfg.Server.APIEndpoint,
		MCPEndpoint:   env.cfg.Server.MCPEndpoint,
		ServerName:    c.appName,
		ServerVersion: version,
	}, serveradapter.Dependencies{
		Tasks:    tasks,
		Commands: commands,
		Ready:    repo,
		Logger:   env.logger.component("http"),
	})
}

// newInterpreter selects the assistant backend from config.
func newInterpreter(env *runtimeEnv) backend.IntentInterpreter {
	if env.cfg.Assistant.Interpreter != config.InterpreterGroq {
		return assistant.NewRuleInterpreter()
	}
	keyEnv := env.cfg.Assistant.APIKeyEnv
	if strings.TrimSpace(os.Getenv(keyEnv)) == "" {
		env.logger.Warn("assistant api key missing; commands will fail", "env", keyEnv)
	}
	return assistant.NewGroqInterpreter(assistant.GroqConfig{
		APIKey:  os.Getenv(keyEnv),
		BaseURL: env.cfg.Assistant.BaseURL,
		Model:   env.cfg.Assistant.Model,
		Logger:  env.logger.component("assistant"),
	})
}

func (c *cli) pathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config, data, and log locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := c.resolvePaths()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "app: %s\n", c.appName)
			_, _ = fmt.Fprintf(out, "dev_mode: %t\n", c.devMode)
			_, _ = fmt.Fprintf(out, "config: %s\n", c.resolveConfigPath(paths))
			_, _ = fmt.Fprintf(out, "data_dir: %s\n", paths.DataDir)
			_, _ = fmt.Fprintf(out, "db: %s\n", paths.DBPath)
			_, _ = fmt.Fprintf(out, "log_dir: %s\n", paths.LogDir)
			return nil
		},
	}
}

func (c *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := c.resolvePaths()
			if err != nil {
				return err
			}
			path := c.resolveConfigPath(paths)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config %q already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stat config: %w", err)
			}
			if err := config.Save(path, config.Default(paths.DBPath)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.AddCommand(initCmd)
	return cmd
}

// parseBoolEnv reads a boolean env var; ok is false when unset or malformed.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
