// Package cmd contains the CLI setup and commands exposed to the user
package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kresha325/FootballPro-sub001/configs"
)

var ConfigFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "jonsport",
	Short: "P2P voice calls between JonSport users via WebRTC",
	Long:  ``,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// deferring this allows user to override config path with cli option
	cobra.OnInitialize(func() {
		log.Printf("using config file: %s", ConfigFile)
		configs.InitConfig(ConfigFile)
	})

	configDir := configs.GetConfigDir()
	defaultConfigFilePath := fmt.Sprintf("%s/jonsport.toml", configDir)
	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", defaultConfigFilePath, "config file")

	rootCmd.PersistentFlags().String("stun-server", "stun:stun.l.google.com:19302", "STUN Server Origin")
	rootCmd.PersistentFlags().String("server", "", "JonSport Server Address")
	rootCmd.PersistentFlags().Bool("debug", false, "Print debugging information")

	// expose to application via viper
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("servers.stun-origin", rootCmd.PersistentFlags().Lookup("stun-server"))
	_ = viper.BindPFlag("servers.jonsport-origin", rootCmd.PersistentFlags().Lookup("server"))
}
