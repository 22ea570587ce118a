package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eivu-go/internal/api"
	"eivu-go/internal/app"
	"eivu-go/internal/config"
	"eivu-go/internal/database"
	"eivu-go/internal/eivu"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	paths, err := app.ResolvePaths(os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("resolving paths: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an EivuApp. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "ingest", "serve").
func newApp(ctx context.Context, command string) (*app.EivuApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewEivuApp(ctx, cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "eivu",
	Short:        "Media ingestion into content-addressed remote storage",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.ResolvePaths(os.Getenv)
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, paths.Home)

		if err := config.Init(paths.ConfigFile, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigFile)
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir:    %s\n", paths.Home)
		fmt.Println("Run `eivu db migrate` to create the database.")
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.ResolvePaths(os.Getenv)
		if err != nil {
			return fmt.Errorf("failed to resolve paths: %w", err)
		}

		cfg, err := config.ReadFromFile(paths.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigFile)
		fmt.Printf("Instance ID: %s\n", cfg.InstanceID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Log Level:   %s\n", cfg.LogLevel)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Gateway:     %s\n", cfg.Gateway.Type)
		fmt.Printf("Listen:      %s\n", cfg.Server.Listen)
		return nil
	},
}

// db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the metadata database",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		status, err := app.MigrateDatabase(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Database at version %d\n", status.Current)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}
		status, err := app.DatabaseStatus(cfg)
		if err != nil {
			return err
		}
		dirty := ""
		if status.Dirty {
			dirty = " (dirty)"
		}
		fmt.Printf("Version %d of %d%s, %d pending\n", status.Current, status.Latest, dirty, status.Pending())
		return nil
	},
}

var dbSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema produced by the migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := database.DumpSchema(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Print(schema)
		return nil
	},
}

var dbBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a snapshot of the database to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "db-backup")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}
		fmt.Printf("Database written to %s\n", args[0])
		return nil
	},
}

// region command
var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Manage remote regions",
}

var regionAddCmd = &cobra.Command{
	Use:   "add NAME ENDPOINT",
	Short: "Register a region",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "region-add")
		if err != nil {
			return err
		}
		defer a.Close()

		region, err := a.Service().CreateRegion(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Region %s (%s) added\n", region.Name, region.Endpoint)
		return nil
	},
}

var regionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "region-list")
		if err != nil {
			return err
		}
		defer a.Close()

		regions, err := a.Service().ListRegions(cmd.Context())
		if err != nil {
			return err
		}
		if len(regions) == 0 {
			fmt.Println("No regions.")
			return nil
		}
		for _, r := range regions {
			fmt.Printf("%-16s  %s\n", r.Name, r.Endpoint)
		}
		return nil
	},
}

// bucket command
var bucketCmd = &cobra.Command{
	Use:   "bucket",
	Short: "Manage buckets",
}

var bucketAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")

		a, err := newApp(cmd.Context(), "bucket-add")
		if err != nil {
			return err
		}
		defer a.Close()

		bucket, err := a.Service().CreateBucket(cmd.Context(), args[0], region)
		if err != nil {
			return err
		}
		fmt.Printf("Bucket %s added (%s)\n", bucket.Name, bucket.ID)
		return nil
	},
}

var bucketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "bucket-list")
		if err != nil {
			return err
		}
		defer a.Close()

		buckets, err := a.Service().ListBuckets(cmd.Context())
		if err != nil {
			return err
		}
		if len(buckets) == 0 {
			fmt.Println("No buckets.")
			return nil
		}
		for _, b := range buckets {
			region := "-"
			if loc, err := a.Service().Locate(cmd.Context(), b); err == nil {
				region = loc.Region
			}
			fmt.Printf("%-24s  %-12s  %s\n", b.Name, region, b.ID)
		}
		return nil
	},
}

// ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest DIR",
	Short: "Upload every file under DIR into a bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bucket, _ := cmd.Flags().GetString("bucket")
		peepy, _ := cmd.Flags().GetBool("peepy")
		nsfw, _ := cmd.Flags().GetBool("nsfw")

		a, err := newApp(cmd.Context(), "ingest")
		if err != nil {
			return err
		}
		defer a.Close()

		run, err := a.Ingest(cmd.Context(), args[0], app.IngestOptions{
			Bucket: bucket,
			Folder: eivu.Classification{Peepy: peepy, Nsfw: nsfw},
		})
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}

		fmt.Printf("Ingested %d file(s), %d duplicate(s) skipped, %d failed\n",
			len(run.Completed), run.Duplicates, run.Failed)
		if run.Status != app.StatusSuccess {
			return fmt.Errorf("%d file(s) failed, see %s", run.Failed, a.Config().LogDir)
		}
		return nil
	},
}

// folders command
var foldersCmd = &cobra.Command{
	Use:   "folders BUCKET",
	Short: "Show a bucket's folder tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clean, _ := cmd.Flags().GetBool("clean")
		peepy, _ := cmd.Flags().GetBool("peepy")
		hasContent, _ := cmd.Flags().GetBool("has-content")

		a, err := newApp(cmd.Context(), "folders")
		if err != nil {
			return err
		}
		defer a.Close()

		bucket, err := a.Service().FindBucketByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		nodes, err := a.Service().FolderListing(cmd.Context(), bucket.ID, eivu.FolderFilter{
			Clean:      clean,
			PeepyOnly:  peepy,
			HasContent: hasContent,
		})
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			fmt.Println("No folders.")
			return nil
		}
		printTree(nodes, 0)
		return nil
	},
}

func printTree(nodes []*eivu.FolderNode, depth int) {
	for _, n := range nodes {
		flag := ""
		if n.Peepy {
			flag = " [peepy]"
		}
		fmt.Printf("%s%s/  files:%d subfolders:%d%s\n",
			strings.Repeat("  ", depth), n.Name, n.FilesCount, n.SubfoldersCount, flag)
		printTree(n.Children, depth+1)
	}
}

var foldersRecountCmd = &cobra.Command{
	Use:   "recount BUCKET",
	Short: "Recompute folder counts from live rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "folders-recount")
		if err != nil {
			return err
		}
		defer a.Close()

		bucket, err := a.Service().FindBucketByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		n, err := a.Service().Recount(cmd.Context(), bucket.ID)
		if err != nil {
			return err
		}
		fmt.Printf("Corrected %d folder(s)\n", n)
		return nil
	},
}

// file command
var fileCmd = &cobra.Command{
	Use:   "file",
	Short: "Inspect and remove files",
}

var fileShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "file-show")
		if err != nil {
			return err
		}
		defer a.Close()

		svc := a.Service()
		file, err := svc.FindFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:       %s\n", file.ID)
		fmt.Printf("Name:     %s\n", file.DisplayName())
		fmt.Printf("State:    %s\n", file.State)
		fmt.Printf("MD5:      %s\n", file.ContentHash)
		fmt.Printf("Type:     %s\n", file.ContentType)
		fmt.Printf("Size:     %d\n", file.Filesize)
		fmt.Printf("Key:      %s\n", eivu.ObjectKey(file))
		if url, err := svc.FileURL(cmd.Context(), file.ID); err == nil {
			fmt.Printf("URL:      %s\n", url)
		}
		fmt.Printf("Updated:  %s\n", file.UpdatedAt.Format("2006-01-02 15:04:05"))
		return nil
	},
}

var fileRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a file record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		purge, _ := cmd.Flags().GetBool("purge")

		a, err := newApp(cmd.Context(), "file-rm")
		if err != nil {
			return err
		}
		defer a.Close()

		svc := a.Service()
		if purge {
			if err := svc.DeleteRemote(cmd.Context(), args[0]); err != nil {
				return err
			}
		}
		if err := svc.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

// gateway command
var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Remote object store",
}

var gatewayCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured gateway is usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "gateway-check")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateGateway(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Gateway %s OK\n", a.Config().Gateway.Type)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, "serve")
		if err != nil {
			return err
		}
		defer a.Close()

		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = a.Config().Server.Listen
		}

		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              listen,
			Handler:           api.NewRouter(a.Service(), a.Logger(), a.Gatherer()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			a.Logger().Info("listening", "addr", listen)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// db subcommands
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbSchemaCmd)
	dbCmd.AddCommand(dbBackupCmd)

	// region and bucket subcommands
	regionCmd.AddCommand(regionAddCmd)
	regionCmd.AddCommand(regionListCmd)
	bucketCmd.AddCommand(bucketAddCmd)
	bucketAddCmd.Flags().String("region", "", "Region the bucket lives in")
	bucketCmd.AddCommand(bucketListCmd)

	// file subcommands
	fileCmd.AddCommand(fileShowCmd)
	fileCmd.AddCommand(fileRmCmd)
	fileRmCmd.Flags().Bool("purge", false, "Also delete the remote object")

	gatewayCmd.AddCommand(gatewayCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(regionCmd)
	rootCmd.AddCommand(bucketCmd)
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringP("bucket", "b", "", "Target bucket")
	ingestCmd.MarkFlagRequired("bucket")
	ingestCmd.Flags().Bool("peepy", false, "Mark new content and folders as peepy")
	ingestCmd.Flags().Bool("nsfw", false, "Mark new content and folders as nsfw")
	rootCmd.AddCommand(foldersCmd)
	foldersCmd.Flags().Bool("clean", false, "Hide peepy folders")
	foldersCmd.Flags().Bool("peepy", false, "Only peepy folders")
	foldersCmd.Flags().Bool("has-content", false, "Hide empty folders")
	foldersCmd.AddCommand(foldersRecountCmd)
	rootCmd.AddCommand(fileCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (default from config)")
}
