package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "oncoreg",
	Short: "OncoRegistry CLI - hospital cancer registry reporting",
	Long: `OncoRegistry CLI is a command-line tool for the hospital cancer registry.
It manages scheduled reports, inspects execution history and browses the
patient registry through the registry's HTTP API.`,
}

func init() {
	viper.SetConfigName(".oncoreg")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.SetDefault("server", "http://localhost:8080")
	_ = viper.ReadInConfig()

	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newScheduleCommand())
	rootCmd.AddCommand(newExecutionsCommand())
	rootCmd.AddCommand(newPatientsCommand())
	rootCmd.AddCommand(newTemplatesCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
