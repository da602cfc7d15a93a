package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kresha325/FootballPro-sub001/internal/call"
)

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Call another user",
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(_ *cobra.Command, args []string) error {
		if err := requireCredentials(); err != nil {
			return err
		}

		if len(args) == 0 {
			return fmt.Errorf("recipient must be specified as an argument")
		}

		recipient := args[0]
		if len(recipient) > 16 {
			return fmt.Errorf("recipient string too long")
		}
		viper.Set("recipient", recipient)
		return nil
	},
	Run: callUser,
}

func init() {
	rootCmd.AddCommand(callCmd)
}

func callUser(_ *cobra.Command, _ []string) {
	recipient := viper.GetString("recipient")

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, cleanup, err := connectManager(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer cleanup()

	manager.OnStateChange(func(s *call.Session, st call.State) {
		log.Printf("call with %s: %s", s.RemoteID(), st)
	})

	session, err := manager.StartCall(recipient)
	if err != nil {
		fmt.Println(err)
		return
	}
	log.Printf("calling %s...", recipient)

	select {
	case <-ctx.Done():
		session.HangUp()
		<-session.Done()
	case <-session.Done():
	}
}
