package cmd

// app.go wires the concrete signaling, media and webrtc layers into a
// call.Manager for the client commands.

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/kresha325/FootballPro-sub001/internal/call"
	"github.com/kresha325/FootballPro-sub001/internal/media"
	"github.com/kresha325/FootballPro-sub001/internal/rtc"
	"github.com/kresha325/FootballPro-sub001/internal/signaling"
)

// mediaSource adapts package media to the call.Media interface.
type mediaSource struct{}

func (mediaSource) Acquire() (call.MediaStream, error) {
	s, err := media.Acquire()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// playbackNegotiator couples speaker playback to the peer connection's
// lifetime, so hanging up stops the playback device along with the
// connection.
type playbackNegotiator struct {
	*rtc.Negotiator
	playback *media.Playback
}

func (p *playbackNegotiator) Close() {
	p.Negotiator.Close()
	p.playback.Stop()
}

func newNegotiatorFactory(stunServer, trackID string) func() (call.Negotiator, error) {
	return func() (call.Negotiator, error) {
		n, err := rtc.NewNegotiator(stunServer, trackID)
		if err != nil {
			return nil, err
		}
		playback, err := media.NewPlayback()
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("error initializing playback system: %w", err)
		}
		n.OnRemoteTrack(playback.Play)
		return &playbackNegotiator{Negotiator: n, playback: playback}, nil
	}
}

// connectManager dials the signaling channel and returns a manager for
// placing and answering calls. The returned cleanup func disconnects the
// channel and hangs up any active call.
func connectManager(ctx context.Context) (*call.Manager, func(), error) {
	server, stunServer, username, password, displayName := viper.GetString("servers.jonsport-origin"),
		viper.GetString("servers.stun-origin"),
		viper.GetString("user.name"),
		viper.GetString("user.password"),
		viper.GetString("user.display-name")
	if displayName == "" {
		displayName = username
	}

	client := signaling.NewClient(signaling.Credentials{
		BaseURL:  server,
		Username: username,
		Password: password,
	})
	manager := call.NewManager(call.Config{
		DisplayName:   displayName,
		Signaler:      client,
		Media:         mediaSource{},
		NewNegotiator: newNegotiatorFactory(stunServer, username),
	})

	if err := client.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("error connecting to signaling channel: %w", err)
	}

	cleanup := func() {
		manager.Close()
		client.Disconnect()
	}
	return manager, cleanup, nil
}

// requireCredentials is shared PreRunE validation for commands that talk to
// the server as a registered user.
func requireCredentials() error {
	username, password := viper.GetString("user.name"), viper.GetString("user.password")
	if len(username) == 0 {
		return fmt.Errorf("username not found. ensure it is present in %s", ConfigFile)
	}
	if len(password) == 0 {
		return fmt.Errorf("password not found. ensure it is present in %s", ConfigFile)
	}
	return nil
}
