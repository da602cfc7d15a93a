package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/kresha325/FootballPro-sub001/internal/crypto"
	"github.com/kresha325/FootballPro-sub001/internal/dal"
	"github.com/kresha325/FootballPro-sub001/internal/db"
)

// inviteCmd represents the create-invite command.
var inviteCmd = &cobra.Command{
	Use:   "create-invite",
	Short: "Generate an invite code for a new user",
	Args:  cobra.MaximumNArgs(0),
	Run:   generateInvite,
}

func init() {
	rootCmd.AddCommand(inviteCmd)
}

func generateInvite(_ *cobra.Command, _ []string) {
	inviteCode := crypto.GenerateInviteCode()
	db := db.GetDB()
	if err := dal.AddInviteCode(db, inviteCode); err != nil {
		log.Fatalf("error creating invite code: %v", err)
	}
	log.Printf("Generated Invite Code: %s", inviteCode)
}
