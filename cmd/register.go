package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kresha325/FootballPro-sub001/configs"
	"github.com/kresha325/FootballPro-sub001/internal/crud"
	"github.com/kresha325/FootballPro-sub001/internal/validation"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this client with a new user",
	Args:  cobra.MaximumNArgs(0),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		inviteCode := viper.GetString("code")
		if inviteCode == "" {
			return fmt.Errorf("must specify an invite code to register")
		}
		return nil
	},
	Run: registerUser,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	var flagName string

	flagName = "code"
	registerCmd.PersistentFlags().String(flagName, "", "invite code for a jonsport server")
	_ = viper.BindPFlag(flagName, registerCmd.PersistentFlags().Lookup(flagName))

	flagName = "display-name"
	registerCmd.PersistentFlags().String(flagName, "", "name shown to other users when calling")
	_ = viper.BindPFlag(flagName, registerCmd.PersistentFlags().Lookup(flagName))
}

func registerUser(_ *cobra.Command, _ []string) {
	username, password, displayName, inviteCode, server := viper.GetString("user.name"),
		viper.GetString("user.password"),
		viper.GetString("display-name"),
		viper.GetString("code"),
		viper.GetString("servers.jonsport-origin")

	if vErr := validation.ValidateUsername(username); vErr != nil {
		log.Fatalf("invalid username %s (%v)", username, vErr)
	}
	if vErr := validation.ValidatePassword(password); vErr != nil {
		log.Fatalf("invalid password (%v)", vErr)
	}

	client := crud.NewClient(server, "", "")
	confirmed, err := crud.Register(client, username, displayName, password, inviteCode)
	if err != nil {
		log.Fatalf("error during registration: %v", err)
	}

	writeErr := configs.PersistCredentialsToConfig(ConfigFile, confirmed.Username, confirmed.DisplayName)
	if writeErr != nil {
		log.Fatalf(
			`error writing username to config file. please write name=%s to %s`,
			confirmed.Username, ConfigFile,
		)
	}
	log.Printf("Now registered with username: %s, display name: %s", confirmed.Username, confirmed.DisplayName)
}
