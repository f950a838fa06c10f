// Command todoist pushes and pulls todo-list graphs against the Todoist
// sync API. Graphs live in local YAML or JSON files; reconciled remote ids
// are cached in a local SQLite database so repeated pushes stay incremental.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/todomove/todoist/internal/cache"
	"github.com/todomove/todoist/internal/todoist"
)

var rootCmd = &cobra.Command{
	Use:   "todoist",
	Short: "Sync todo-list graphs with Todoist",
	Long: `Sync service-agnostic todo-list graphs (tags, folders, projects,
tasks, notes) with Todoist.

Pushes translate the graph into batched sync commands in dependency order
(tags, folders, projects, tasks) and write the server-issued ids back into
a local cache, so a re-run only syncs what is new. Pulls read a full
snapshot and write it out as a graph file.`,
	SilenceUsage: true,
}

func init() {
	// Assigned here rather than in the composite literal: initConfig reads
	// rootCmd's flags, so wiring it at var-init time would be a cycle.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ~/.todomove/config.yaml)")
	flags.String("token", "", "Todoist OAuth token")
	flags.String("client-id", "", "Todoist app client id")
	flags.String("base-url", "", "sync endpoint override")
	flags.String("cache", "", "remote-id cache path (default ~/.todomove/todoist.db)")
	flags.String("log-file", "", "append logs to a rotated file instead of stderr")
	flags.BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(pushCmd, pullCmd, statusCmd)
}

func initConfig(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}
	viper.SetEnvPrefix("TODOIST")
	viper.AutomaticEnv()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; flags and env still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".todomove")
}

func newLogger() *log.Logger {
	var out io.Writer = os.Stderr
	if logFile := viper.GetString("log-file"); logFile != "" {
		out = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	}
	logFlags := log.LstdFlags
	if viper.GetBool("verbose") {
		logFlags |= log.Lmicroseconds
	}
	return log.New(out, "[todoist] ", logFlags)
}

func newClient() (*todoist.Client, error) {
	token := viper.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("no token configured (use --token, TODOIST_TOKEN, or the config file)")
	}
	return todoist.NewClient(todoist.ClientOptions{
		BaseURL:  viper.GetString("base-url"),
		Token:    token,
		ClientID: viper.GetString("client-id"),
	}), nil
}

func cachePath() string {
	if path := viper.GetString("cache"); path != "" {
		return path
	}
	return filepath.Join(configDir(), "todoist.db")
}

func openCache() (*cache.Cache, error) {
	return cache.Open(cachePath())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
