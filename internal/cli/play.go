package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"codetyper/internal/events"
	"codetyper/internal/protocol"
	"codetyper/internal/relayclient"
	"codetyper/internal/rooms"
)

var errRoomFull = errors.New("room is full")

// progress mirrors what the browser sends as player_update.
type progress struct {
	TypedText       string `json:"typedText"`
	CurrentPosition int    `json:"currentPosition"`
}

func newPlayCmd() *cobra.Command {
	var roomID, username string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Join a room and race from the terminal",
		Long: `Join a room as a player. Each line read from stdin is appended to the
typed text and sent to the opponent. Opponent progress and room events are
printed as they arrive.

Without --room a new room code is generated and printed so the other player
can join it. Press Ctrl+C to leave.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if roomID == "" {
				code, err := rooms.GenerateCode()
				if err != nil {
					return err
				}
				roomID = code
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client := relayclient.New(relayclient.Config{
				URL:                  cfg.RelayURL,
				MaxReconnectAttempts: cfg.MaxReconnectAttempts,
				ReconnectDelay:       cfg.ReconnectDelay,
				ConnectTimeout:       cfg.ConnectTimeout,
			})
			return play(ctx, client, cmd.InOrStdin(), cmd.OutOrStdout(), roomID, username)
		},
	}

	cmd.Flags().StringVar(&roomID, "room", "", "Room code to join (default: generate one)")
	cmd.Flags().StringVarP(&username, "username", "u", "player", "Name shown to the opponent")
	cmd.Flags().StringVar(&cfg.RelayURL, "relay", cfg.RelayURL, "Relay WebSocket URL (env: RELAY_URL)")
	cmd.Flags().IntVar(&cfg.MaxReconnectAttempts, "max-reconnect-attempts", cfg.MaxReconnectAttempts, "Give up after this many failed connects (env: MAX_RECONNECT_ATTEMPTS)")
	cmd.Flags().DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "Delay between reconnect attempts")

	return cmd
}

func play(ctx context.Context, client *relayclient.Client, in io.Reader, w io.Writer, roomID, username string) error {
	var mu sync.Mutex
	printf := func(format string, a ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format+"\n", a...)
	}

	fail := make(chan error, 1)
	abort := func(err error) {
		select {
		case fail <- err:
		default:
		}
	}

	on := func(event string, fn func(json.RawMessage)) {
		client.AddEventListener(event, events.NewListener(fn))
	}
	on(protocol.EventPlayerAssigned, func(p json.RawMessage) {
		var a protocol.PlayerAssigned
		if json.Unmarshal(p, &a) == nil {
			printf("joined room %s as player %d", roomID, a.PlayerNumber)
		}
	})
	on(protocol.EventPlayerJoined, func(p json.RawMessage) {
		var j protocol.PlayerJoined
		if json.Unmarshal(p, &j) == nil {
			printf("%s is ready (player %d)", j.Username, j.PlayerNumber)
		}
	})
	on(protocol.EventGameStart, func(json.RawMessage) {
		printf("game started")
	})
	on(protocol.EventOpponentUpdate, func(p json.RawMessage) {
		var u progress
		if json.Unmarshal(p, &u) == nil {
			printf("opponent: %s", u.TypedText)
		}
	})
	on(protocol.EventPlayerLeft, func(p json.RawMessage) {
		var l protocol.PlayerLeft
		if json.Unmarshal(p, &l) == nil {
			printf("%s left the room", l.Username)
		}
	})
	on(protocol.EventRoomFull, func(json.RawMessage) {
		abort(fmt.Errorf("%s: %w", roomID, errRoomFull))
	})
	on(protocol.EventConnectionError, func(p json.RawMessage) {
		abort(fmt.Errorf("lost connection to relay after %d attempts: %s", client.Attempts(), p))
	})

	if err := client.Connect(ctx, roomID); err != nil {
		return err
	}
	defer client.Disconnect()
	printf("room code: %s", roomID)

	if err := client.SendReady(protocol.PlayerReady{Username: username}); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var typed string
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-fail:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			typed += line + "\n"
			if err := client.Send(progress{TypedText: typed, CurrentPosition: len(typed)}); err != nil {
				return err
			}
		}
	}
}
