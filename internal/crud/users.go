package crud

// users.go implements user-related CRUD.
import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kresha325/FootballPro-sub001/internal/schemas"
)

// Register asks the jonsport server to create a new user given the provided
// credentials and returns the accepted username and display name.
func Register(client *http.Client, username, displayName, password, inviteCode string) (schemas.RegisterResponse, error) {
	var confirmed schemas.RegisterResponse

	newUser := schemas.NewUserRequest{
		Username:    username,
		DisplayName: displayName,
		Password:    password,
		InviteCode:  inviteCode,
	}
	payload, err := json.Marshal(newUser)
	if err != nil {
		return confirmed, fmt.Errorf("json marshal error: %w", err)
	}

	res, err := client.Post(
		"/register",
		"application/json; charset=utf-8",
		bytes.NewReader(payload),
	)
	if err != nil {
		return confirmed, fmt.Errorf("request error: %w", err)
	}

	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return confirmed, fmt.Errorf("request failed: %s", string(body))
	}

	if err := json.NewDecoder(res.Body).Decode(&confirmed); err != nil {
		return confirmed, fmt.Errorf("json decode error: %w", err)
	}
	return confirmed, nil
}
