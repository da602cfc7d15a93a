package routes

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kresha325/FootballPro-sub001/internal/crypto"
	"github.com/kresha325/FootballPro-sub001/internal/dal"
	"github.com/kresha325/FootballPro-sub001/internal/schemas"
	"github.com/kresha325/FootballPro-sub001/internal/validation"
)

func (h *RouteHandler) Register(w http.ResponseWriter, req *http.Request) {
	data := schemas.NewUserRequest{}
	if err := json.NewDecoder(req.Body).Decode(&data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err, statusCode := validation.CheckRegistrationCredentials(h.db, data.InviteCode, data.Username, data.Password)
	if err != nil {
		http.Error(w, err.Error(), statusCode)
		return
	}

	displayName := data.DisplayName
	if displayName == "" {
		displayName = data.Username
	}

	hashedPassword, err := crypto.HashPassword(data.Password)
	if err != nil {
		log.Println(err.Error())
		http.Error(w, "password error", http.StatusInternalServerError)
		return
	}

	if err := dal.CreateUser(h.db, data.Username, displayName, hashedPassword, data.InviteCode); err != nil {
		log.Println(err.Error())
		err = errors.New("error creating new user")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Printf("registered new user %s", data.Username)

	res := schemas.RegisterResponse{Username: data.Username, DisplayName: displayName}
	WriteJSON(w, &res)
}
