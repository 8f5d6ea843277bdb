package main

import (
	"context"
	"embed"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"

	"bigscreen/internal/app"
	"bigscreen/internal/config"
	"bigscreen/internal/infrastructure/errors"
	"bigscreen/internal/infrastructure/logging"
	"bigscreen/internal/settings"
)

//go:embed all:frontend/dist
var assets embed.FS

var (
	configPath       string
	overridePath     string
	alwaysLoadConfig bool
	debug            bool
	stdioLogPath     string
	browserPath      string
)

var rootCmd = &cobra.Command{
	Use:           "bigscreen",
	Short:         "Show one web page full screen, unattended",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", config.PackagedConfig(), "packaged config file (yaml or toml)")
	flags.StringVar(&overridePath, "override", "", "user config merged over the packaged one")
	flags.BoolVar(&alwaysLoadConfig, "always-load-config", settings.ShouldAlwaysLoadConfig(),
		"reload the packaged config into settings on every start (env "+settings.AlwaysLoadConfigEnv+")")
	flags.BoolVar(&debug, "debug", false, "log at debug level")
	flags.StringVar(&stdioLogPath, "stdio-log", os.Getenv("BIGSCREEN_STDIO_LOG"), "redirect stdout and stderr to this file")
	flags.StringVar(&browserPath, "browser", os.Getenv("BIGSCREEN_BROWSER"), "kiosk browser executable")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := redirectStdIO(stdioLogPath); err != nil {
		return fmt.Errorf("redirect stdio: %w", err)
	}

	// the packaged config names the app, and the name places the log and database
	doc, err := config.LoadWithOverride(configPath, overridePath, nil)
	if err != nil {
		return err
	}
	name := doc.String(settings.KeyName)
	paths := config.NewPaths(name)

	level, wailsLevel := logging.LevelInfo, logger.INFO
	if debug {
		level, wailsLevel = logging.LevelDebug, logger.DEBUG
	}
	log, closer, err := logging.NewFileLogger(paths.Log(), logging.Options{Name: paths.Name, Level: level})
	if err != nil {
		return err
	}
	defer closer.Close()
	errors.SetRetryLogger(errors.NewLoggerBridge(log))

	logging.LogSystemDetails(log)
	log.Debug("Starting", "config", configPath, "override", overridePath, "always_load_config", strconv.FormatBool(alwaysLoadConfig))

	application, err := app.NewApp(app.Config{
		Paths:            paths,
		ConfigPath:       configPath,
		AlwaysLoadConfig: alwaysLoadConfig,
		Load: func() (config.Document, error) {
			return config.LoadWithOverride(configPath, overridePath, log)
		},
		BrowserPath: browserPath,
		Logger:      log,
	})
	if err != nil {
		return err
	}

	if err := application.Bootstrap(context.Background()); err != nil {
		logging.LogError(log, err, "load_config_into_settings", map[string]interface{}{"path": configPath})
		return err
	}

	title := doc.String(settings.KeyAppName)
	if title == "" {
		title = paths.Name
	}

	return wails.Run(&options.App{
		Title:             title,
		Width:             640,
		Height:            480,
		MinWidth:          480,
		MinHeight:         360,
		DisableResize:     false,
		Fullscreen:        false,
		Frameless:         false,
		StartHidden:       true,
		HideWindowOnClose: false,
		AlwaysOnTop:       false,
		BackgroundColour:  &options.RGBA{R: 0, G: 0, B: 0, A: 255},
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Menu:             nil,
		Logger:           logging.NewWailsLoggerAdapter(log),
		LogLevel:         wailsLevel,
		OnStartup:        application.Startup,
		OnDomReady:       application.DomReady,
		OnBeforeClose:    application.BeforeClose,
		OnShutdown:       application.Shutdown,
		WindowStartState: options.Normal,
		Bind: []interface{}{
			application,
		},
		Windows: &windows.Options{
			DisableWindowIcon: false,
			ZoomFactor:        1.0,
		},
		Mac: &mac.Options{
			TitleBar:   mac.TitleBarDefault(),
			Appearance: mac.NSAppearanceNameDarkAqua,
			About: &mac.AboutInfo{
				Title:   title,
				Message: "Kiosk display",
			},
		},
	})
}
