// Package main provides the entry point for the MDS data store client.
// It authorizes against the authorization server using the OAuth device
// flow (or a pre-issued offline token) and exposes dataset listing,
// download, and upload operations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/gbrrestoration/mdsclient/internal/auth/keycloak"
	"github.com/gbrrestoration/mdsclient/internal/auth/token"
	"github.com/gbrrestoration/mdsclient/internal/browser"
	"github.com/gbrrestoration/mdsclient/internal/config"
	"github.com/gbrrestoration/mdsclient/internal/datastore"
	"github.com/gbrrestoration/mdsclient/internal/logging"
)

// offlineTokenEnv names the environment variable holding the pre-issued
// offline refresh token. It is read here, at the CLI boundary, and passed
// explicitly into the manager.
const offlineTokenEnv = "MDS_OFFLINE_TOKEN"

func main() {
	var (
		configPath  string
		stage       string
		offline     bool
		login       bool
		mintOffline bool
		list        bool
		download    string
		upload      string
		sourceDir   string
		destDir     string
		noBrowser   bool
		forceReset  bool
		silent      bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "mdsclient.yaml", "Configuration file path")
	flag.StringVar(&stage, "stage", "", "Deployment stage (TEST, DEV, STAGE, PROD); overrides the config file")
	flag.BoolVar(&offline, "offline", false, "Use the offline token from "+offlineTokenEnv+" instead of the device flow")
	flag.BoolVar(&login, "login", false, "Authorize and cache tokens, then exit")
	flag.BoolVar(&mintOffline, "mint-offline", false, "Run a device flow requesting offline access and print the resulting offline token")
	flag.BoolVar(&list, "list", false, "List all registered datasets")
	flag.StringVar(&download, "download", "", "Download the dataset with the given handle")
	flag.StringVar(&upload, "upload", "", "Upload files to the dataset with the given handle")
	flag.StringVar(&sourceDir, "src", "", "Source directory for -upload")
	flag.StringVar(&destDir, "dest", "data", "Destination directory for -download")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open a browser automatically during the device flow")
	flag.BoolVar(&forceReset, "force-reset", false, "Clear all cached stage tokens before authorizing")
	flag.BoolVar(&silent, "silent", false, "Suppress informational output")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	logging.Setup(debug)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if cfg.Debug && !debug {
		logging.Setup(true)
	}
	if cfg.LogFile != "" {
		if err = logging.EnableFileOutput(cfg.LogFile); err != nil {
			log.Fatalf("failed to enable log file: %v", err)
		}
	}
	if stage != "" {
		cfg.Stage = stage
	}

	ctx := context.Background()

	if mintOffline {
		if err = runMintOffline(ctx, cfg, noBrowser); err != nil {
			log.Fatalf("offline token generation failed: %v", err)
		}
		return
	}

	manager, err := buildManager(ctx, cfg, offline, noBrowser, forceReset, silent)
	if err != nil {
		log.Fatalf("authorization failed: %v", err)
	}

	switch {
	case login:
		if !silent {
			fmt.Printf("Authorization successful, tokens cached for stage %s.\n", cfg.Stage)
		}
	case list:
		err = runList(ctx, cfg, manager)
	case download != "":
		client := datastore.New(cfg.DataStoreEndpoint, manager, nil)
		err = client.Download(ctx, download, destDir)
	case upload != "":
		if sourceDir == "" {
			log.Fatal("-upload requires -src")
		}
		client := datastore.New(cfg.DataStoreEndpoint, manager, nil)
		err = client.Upload(ctx, upload, sourceDir)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("operation failed: %v", err)
	}
}

// buildManager constructs the token session manager for the configured
// stage and flow mode.
func buildManager(ctx context.Context, cfg *config.Config, offline, noBrowser, forceReset, silent bool) (*token.Manager, error) {
	stage, err := token.ParseStage(cfg.Stage)
	if err != nil {
		return nil, err
	}
	mode, err := token.ParseFlowMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}
	if offline {
		mode = token.FlowOffline
	}

	opts := token.Options{
		Stage:      stage,
		Endpoint:   cfg.AuthEndpoint,
		ClientID:   cfg.ClientID,
		Scopes:     cfg.Scopes,
		Mode:       mode,
		FilePath:   cfg.TokenFile,
		ForceReset: forceReset,
		Silent:     silent,
		NoBrowser:  noBrowser,
	}
	if mode == token.FlowOffline {
		offlineToken := os.Getenv(offlineTokenEnv)
		if offlineToken == "" {
			return nil, fmt.Errorf("offline mode requires the %s environment variable", offlineTokenEnv)
		}
		opts.Mode = token.FlowOffline
		opts.OfflineToken = offlineToken
		opts.ClientID = cfg.OfflineClientID
	}
	return token.NewManager(ctx, opts)
}

// runMintOffline performs a device flow requesting offline access and
// prints the resulting long-lived refresh token for later use.
func runMintOffline(ctx context.Context, cfg *config.Config, noBrowser bool) error {
	flow := keycloak.New(cfg.AuthEndpoint, cfg.OfflineClientID, []string{"offline_access", "roles"}, nil)

	auth, err := flow.StartDeviceFlow(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Verification URL: %s\n", auth.VerificationURIComplete)
	fmt.Printf("User code: %s\n", auth.UserCode)
	if !noBrowser {
		if err = browser.OpenURL(auth.VerificationURIComplete); err != nil {
			log.Warnf("failed to open browser, please visit the URL manually: %v", err)
		}
	}

	fmt.Println("Awaiting authorization...")
	resp, err := flow.PollForTokens(ctx, auth)
	if err != nil {
		return err
	}
	if resp.RefreshToken == "" {
		return fmt.Errorf("device flow payload did not include a refresh token")
	}

	fmt.Printf("Offline token (export as %s):\n%s\n", offlineTokenEnv, resp.RefreshToken)
	return nil
}

func runList(ctx context.Context, cfg *config.Config, manager *token.Manager) error {
	client := datastore.New(cfg.DataStoreEndpoint, manager, nil)
	datasets, err := client.ListDatasets(ctx)
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		fmt.Println("No datasets registered.")
		return nil
	}
	for _, dataset := range datasets {
		fmt.Printf("%s\t%s\n", dataset.Handle, dataset.Name)
	}
	return nil
}
