package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "couckoo",
	Short: "Efficient detection of near-duplicate images using locality sensitive hashing",
	Long: `Couckoo finds near-duplicate images in a directory without comparing
every pair. Each image gets a compact bit-vector signature; signatures are
split into bands and bucketed, and only bucket-mates are compared, so large
collections stay tractable.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
