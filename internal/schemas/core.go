// package schemas holds the server's record and request types.
package schemas

import (
	"time"

	"github.com/google/uuid"
)

// User stores information about a registered jonsport participant.
type User struct {
	// for DB storage, never changes. Not given to anyone
	Id uuid.UUID

	// public username; the participant id signaling messages are
	// addressed by
	Username string

	// shown on the callee's screen when this user calls
	DisplayName string

	// hashed password
	Password string

	CreatedAt string
}

type InviteCode struct {
	Id               uuid.UUID
	Code             string
	RegisteredUserId uuid.UUID
	createdAt        time.Time
}
