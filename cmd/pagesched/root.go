package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pagesched",
	Short: "Drive a concurrent pagination scheduler against a paginated HTTP API",
	Long: `pagesched is a command-line front-end over the pagesched scheduler
library: it paginates one or more entities through a generic cursor-based
HTTP API, using a Redis-backed response cache and error-budget rate limiter,
and prints the accumulated items as JSON.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a pagesched.yaml config file")
	rootCmd.PersistentFlags().String("redis-addr", "", "redis address (host:port)")
	rootCmd.PersistentFlags().String("base-url", "", "base URL of the paginated API")
	rootCmd.PersistentFlags().String("user-agent", "", "User-Agent header to send")
	rootCmd.PersistentFlags().Int("concurrency", 0, "maximum in-flight batches")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")

	v := viper.New()
	v.BindPFlag("redis.addr", rootCmd.PersistentFlags().Lookup("redis-addr"))
	v.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	v.BindPFlag("user_agent", rootCmd.PersistentFlags().Lookup("user-agent"))
	v.BindPFlag("scheduler.concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))
	v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viperInstance = v

	rootCmd.AddCommand(runCmd)
}

// viperInstance is shared between root's flag binding and each subcommand's
// RunE, since viper.BindPFlag must be called once the flags exist but
// config loading happens per-invocation.
var viperInstance *viper.Viper

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
