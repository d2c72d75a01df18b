package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/aita/btreedb/db"
	"github.com/aita/btreedb/logger"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "btreedb",
	Short:        "A single table database stored as a B-tree",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.btreedb.yaml)")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.Int("max-pages", 100, "maximum number of pages in a database file")
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))
	viper.BindPFlag("db.max_pages", flags.Lookup("max-pages"))

	viper.SetDefault("log.output", "stderr")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".btreedb")
	}

	viper.SetEnvPrefix("btreedb")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.ReadInConfig()
}

func newLogger() (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:  viper.GetString("log.level"),
		Format: viper.GetString("log.format"),
		Output: viper.GetString("log.output"),
	})
}

func openTable(path string, log *zap.Logger, reg prometheus.Registerer) (*db.Table, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("using config file", zap.String("config", used))
	}
	return db.Open(path,
		db.WithLogger(log),
		db.WithMaxPages(viper.GetInt("db.max_pages")),
		db.WithRegisterer(reg),
	)
}
