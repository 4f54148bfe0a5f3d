package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"db-mirror/internal/engine"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbosity int
	log       = logrus.New()
)

var RootCmd = &cobra.Command{
	Use:   "db-mirror",
	Short: "Copy a relational database into another engine and verify the copy",
	Long: `
  ____  ____    __  __ ___ ____  ____   ___  ____
 |  _ \| __ )  |  \/  |_ _|  _ \|  _ \ / _ \|  _ \
 | | | |  _ \  | |\/| || || |_) | |_) | | | | |_) |
 | |_| | |_) | | |  | || ||  _ <|  _ <| |_| |  _ <
 |____/|____/  |_|  |_|___|_| \_\_| \_\\___/|_| \_\

DB MIRROR 🪞 - Cross-engine Database Copy & Verification
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch {
		case verbosity >= 2:
			log.SetLevel(logrus.TraceLevel)
		case verbosity == 1:
			log.SetLevel(logrus.DebugLevel)
		default:
			log.SetLevel(logrus.InfoLevel)
		}
		log.Debugf("Operating at log level: %s", log.GetLevel())
	},
}

// outcomeError carries a verification outcome out of a command.
type outcomeError struct {
	outcome engine.Outcome
}

func (e *outcomeError) Error() string {
	return "verification " + e.outcome.String()
}

func outcomeErr(o engine.Outcome) error {
	if o == engine.OutcomeSuccess {
		return nil
	}
	return &outcomeError{outcome: o}
}

// Execute runs the root command and exits with 0 on success, 2 when a
// table or column is missing, 3 on data differences and 1 on any other error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var oe *outcomeError
	if errors.As(err, &oe) {
		os.Exit(oe.outcome.ExitCode())
	}
	log.Error(err)
	os.Exit(1)
}

func init() {
	cobra.OnInitialize(initConfig)

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./db-mirror.yaml)")
	flags.CountVarP(&verbosity, "verbose", "v", "increase verbosity, use twice for trace output")
	flags.StringP("source", "s", "", "source database DSN")
	flags.String("source-driver", "", "source driver (mysql, postgres, sqlserver, oracle, sqlite); detected from the DSN when empty")
	flags.StringP("dest", "d", "", "destination database DSN")
	flags.String("dest-driver", "", "destination driver; detected from the DSN when empty")
	flags.StringSliceP("tables", "t", nil, "only these tables (comma-separated)")
	flags.StringSlice("exclude", nil, "skip these tables (comma-separated)")
	flags.Int("workers", 1, "tables processed concurrently")

	viper.BindPFlag("source.dsn", flags.Lookup("source"))
	viper.BindPFlag("source.driver", flags.Lookup("source-driver"))
	viper.BindPFlag("destination.dsn", flags.Lookup("dest"))
	viper.BindPFlag("destination.driver", flags.Lookup("dest-driver"))
	viper.BindPFlag("settings.tables", flags.Lookup("tables"))
	viper.BindPFlag("settings.exclude", flags.Lookup("exclude"))
	viper.BindPFlag("settings.workers", flags.Lookup("workers"))

	viper.SetDefault("settings.workers", 1)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-mirror")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DBMIRROR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // DBMIRROR_SOURCE_DSN etc.

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		log.Infof("Using config file: %s", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

// bindFlags binds flags of the running command to viper keys. Commands share
// keys, so the binding is made when the command runs rather than at init.
func bindFlags(bindings map[string]string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for key, name := range bindings {
			if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		return nil
	}
}
