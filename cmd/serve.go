package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kresha325/FootballPro-sub001/internal/server"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the jonsport signaling server",
	Args:  cobra.MaximumNArgs(0),
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServer(_ *cobra.Command, _ []string) {
	debug, host, port := viper.GetBool("debug"),
		viper.GetString("host"),
		viper.GetInt("port")

	server.CreateAndListen(debug, host, port)
}
