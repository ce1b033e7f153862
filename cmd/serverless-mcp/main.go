package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"serverless-mcp/internal/awsconfig"
	"serverless-mcp/internal/config"
	"serverless-mcp/internal/deploystore"
	"serverless-mcp/internal/guidance"
	"serverless-mcp/internal/logging"
	"serverless-mcp/internal/samcli"
	"serverless-mcp/internal/server"
	"serverless-mcp/internal/tools"
	"serverless-mcp/internal/tools/esm"
	"serverless-mcp/internal/tools/guide"
	"serverless-mcp/internal/tools/metrics"
	samtools "serverless-mcp/internal/tools/sam"
	"serverless-mcp/internal/tools/webapp"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	configPath     string
	allowWrite     bool
	allowSensitive bool
	profile        string
	region         string
	transport      string
	port           int
	logDir         string
	logLevel       string
	guidanceDir    string
	stateDir       string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "serverless-mcp",
	Short: "MCP server for serverless AWS development with SAM",
	Long: `serverless-mcp is a Model Context Protocol server that gives AI agents
tools for serverless AWS development: scaffolding, building, deploying and
observing SAM applications, deploying web applications, and tuning Lambda
event source mappings.

Mutating tools stay hidden until --allow-write is passed; tools that can
return workload data (logs, payloads, metrics) require
--allow-sensitive-data-access.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		// Stdio sessions own stdout for the protocol, so console logging
		// must go to stderr and only when asked.
		return logging.Init(logging.Options{
			Dir:    cfg.Logging.Dir,
			Level:  cfg.Logging.Level,
			Stderr: cfg.Logging.Stderr,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server (the default when no subcommand is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the server version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("serverless-mcp %s\n", version)
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the current flags would expose",
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := guidance.NewLibrary(cfg.Guidance.OverrideDir)
		if err != nil {
			return err
		}
		reg := tools.NewRegistry()
		if err := registerAll(cmd.Context(), reg, nil, lib); err != nil {
			return err
		}
		gates := tools.Gates{
			AllowWrite:     cfg.Permissions.AllowWrite,
			AllowSensitive: cfg.Permissions.AllowSensitiveDataAccess,
		}

		permitted := map[string]bool{}
		for _, t := range reg.Permitted(gates) {
			permitted[t.Name] = true
		}
		all := reg.List()
		sort.Slice(all, func(i, j int) bool {
			if all[i].Category != all[j].Category {
				return all[i].Category < all[j].Category
			}
			return all[i].Name < all[j].Name
		})

		last := tools.Category("")
		for _, t := range all {
			if t.Category != last {
				fmt.Printf("%s\n", t.Category)
				last = t.Category
			}
			state := "exposed"
			if !permitted[t.Name] {
				state = "hidden"
				if !t.ReadOnly && !gates.AllowWrite {
					state = "hidden (needs --allow-write)"
				} else if t.Sensitive && !gates.AllowSensitive {
					state = "hidden (needs --allow-sensitive-data-access)"
				}
			}
			fmt.Printf("  %-28s %s\n", t.Name, state)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.BoolVar(&allowWrite, "allow-write", false, "Expose tools that mutate cloud or local state")
	pf.BoolVar(&allowSensitive, "allow-sensitive-data-access", false, "Expose tools that return logs, payloads or metric values")
	pf.StringVar(&profile, "profile", "", "AWS shared config profile (overrides AWS_PROFILE)")
	pf.StringVar(&region, "region", "", "AWS region (overrides AWS_REGION)")
	pf.StringVar(&transport, "transport", "", "MCP transport: stdio or http")
	pf.IntVar(&port, "port", 0, "Listen port for the http transport")
	pf.StringVar(&logDir, "log-dir", "", "Directory for log files")
	pf.StringVar(&logLevel, "log-level", "", "Minimum log level: debug, info, warn, error")
	pf.StringVar(&guidanceDir, "guidance-dir", "", "Directory of Markdown files overriding the embedded guidance")
	pf.StringVar(&stateDir, "state-dir", "", "Directory for the deployment history database")

	rootCmd.AddCommand(serveCmd, versionCmd, toolsCmd)
}

// applyFlagOverrides layers explicitly set flags over file and env config.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("allow-write") {
		c.Permissions.AllowWrite = allowWrite
	}
	if flags.Changed("allow-sensitive-data-access") {
		c.Permissions.AllowSensitiveDataAccess = allowSensitive
	}
	if profile != "" {
		c.AWS.Profile = profile
	}
	if region != "" {
		c.AWS.Region = region
	}
	if transport != "" {
		c.Server.Transport = transport
	}
	if port != 0 {
		c.Server.Port = port
	}
	if logDir != "" {
		c.Logging.Dir = logDir
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if guidanceDir != "" {
		c.Guidance.OverrideDir = guidanceDir
	}
	if stateDir != "" {
		c.State.Dir = stateDir
	}
}

// registerAll wires every tool package into the registry. A nil store is
// allowed for listing; serving always opens one.
func registerAll(ctx context.Context, reg *tools.Registry, store *deploystore.Store, lib *guidance.Library) error {
	clients, err := awsconfig.New(ctx, awsconfig.Options{
		Profile:     cfg.AWS.Profile,
		Region:      cfg.AWS.Region,
		EndpointURL: cfg.AWS.EndpointURL,
	})
	if err != nil {
		return err
	}

	// A failed preflight is a warning, not a fatal: the guidance tools
	// work without credentials and the message tells the agent what to fix.
	if store != nil {
		if err := clients.Preflight(ctx); err != nil {
			logging.For(logging.CategoryAWS).Warn("credential preflight failed", zap.Error(err))
		}
	}

	cli := samcli.New(samcli.Config{
		Binary:        cfg.SAM.Binary,
		BuildTimeout:  cfg.SAM.BuildTimeout,
		DeployTimeout: cfg.SAM.DeployTimeout,
		Profile:       cfg.AWS.Profile,
		Region:        clients.Region(),
	})
	if store != nil {
		if err := cli.Available(ctx); err != nil {
			logging.For(logging.CategorySAM).Warn("sam CLI not available; lifecycle tools will fail until it is installed", zap.Error(err))
		}
	}

	if err := samtools.Register(reg, samtools.Deps{
		CLI:           cli,
		Logs:          clients.CloudWatchLogs,
		Stacks:        clients.CloudFormation,
		Store:         store,
		Region:        clients.Region(),
		RequireDocker: cfg.SAM.RequireDocker,
	}); err != nil {
		return err
	}
	if err := webapp.Register(reg, webapp.Deps{
		CLI:      cli,
		Uploader: manager.NewUploader(clients.S3),
		Buckets:  clients.S3,
		CDN:      clients.CloudFront,
		Certs:    clients.ACM,
		DNS:      clients.Route53,
		Store:    store,
		Guide:    lib,
		Region:   clients.Region(),
	}); err != nil {
		return err
	}
	if err := esm.Register(reg, esm.Deps{
		Lambda: clients.Lambda,
		Kafka:  clients.Kafka,
		Guide:  lib,
	}); err != nil {
		return err
	}
	if err := metrics.Register(reg, metrics.Deps{
		CloudWatch: clients.CloudWatch,
	}); err != nil {
		return err
	}
	return guide.Register(reg, guide.Deps{Guide: lib, Store: store})
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logging.For(logging.CategoryBoot)
	log.Info("starting",
		zap.String("version", version),
		zap.String("transport", cfg.Server.Transport),
		zap.Bool("allow_write", cfg.Permissions.AllowWrite),
		zap.Bool("allow_sensitive", cfg.Permissions.AllowSensitiveDataAccess))

	store, err := deploystore.Open(cfg.State.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	lib, err := guidance.NewLibrary(cfg.Guidance.OverrideDir)
	if err != nil {
		return err
	}
	if cfg.Guidance.OverrideDir != "" {
		if err := lib.Watch(ctx.Done()); err != nil {
			log.Warn("guidance override watch failed", zap.Error(err))
		}
	}

	reg := tools.NewRegistry()
	if err := registerAll(ctx, reg, store, lib); err != nil {
		return err
	}

	srv, err := server.Build(server.Options{
		Version:   version,
		Transport: cfg.Server.Transport,
		Port:      cfg.Server.Port,
		Gates: tools.Gates{
			AllowWrite:     cfg.Permissions.AllowWrite,
			AllowSensitive: cfg.Permissions.AllowSensitiveDataAccess,
		},
		Registry: reg,
		Guide:    lib,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
