package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kresha325/FootballPro-sub001/internal/call"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Wait for incoming calls",
	Args:  cobra.MaximumNArgs(0),
	PreRunE: func(_ *cobra.Command, _ []string) error {
		return requireCredentials()
	},
	Run: listenForCalls,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func listenForCalls(_ *cobra.Command, _ []string) {
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
	manager.OnIncoming(func(s *call.Session) {
		go ringPrompt(ctx, s)
	})

	log.Println("listening for incoming calls. ctrl-c to quit")
	<-ctx.Done()
}

// ringPrompt asks the user to answer or decline a ringing call on stdin.
func ringPrompt(ctx context.Context, s *call.Session) {
	name := s.RemoteName()
	if name == "" {
		name = s.RemoteID()
	}
	fmt.Printf("incoming call from %s (%s). answer? [y/n]: ", name, s.RemoteID())

	answer := make(chan bool, 1)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			answer <- false
			return
		}
		reply := strings.ToLower(strings.TrimSpace(scanner.Text()))
		answer <- reply == "y" || reply == "yes"
	}()

	select {
	case <-ctx.Done():
		s.HangUp()
	case <-s.Done():
		fmt.Println("\ncaller hung up")
	case accept := <-answer:
		if !accept {
			s.Decline()
			return
		}
		if err := s.Answer(); err != nil {
			fmt.Printf("could not answer call: %v\n", err)
		}
	}
}
