package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/internal/websocket"
)

func newWatchCmd(root *rootFlags) *cobra.Command {
	var (
		server    string
		sessionID string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow captions from a running stream command over its websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := captionsURL(server, sessionID)
			if err != nil {
				return err
			}
			return followCaptions(cmd.Context(), u, cmd.OutOrStdout(), root.logger)
		},
	}

	cmd.Flags().StringVar(&server, "server", "localhost:8080", "Host and port of the caption server")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only show captions of this session")

	return cmd
}

func captionsURL(server, sessionID string) (string, error) {
	if server == "" {
		return "", errors.New("server cannot be empty")
	}
	u := url.URL{Scheme: "ws", Host: server, Path: "/ws/captions"}
	if sessionID != "" {
		u.RawQuery = url.Values{"session_id": {sessionID}}.Encode()
	}
	return u.String(), nil
}

// followCaptions prints caption lines until the server closes the
// connection or ctx is cancelled.
func followCaptions(ctx context.Context, rawURL string, out io.Writer, logger *zap.Logger) error {
	logger.Info("Connecting to caption server", zap.String("url", rawURL))

	conn, _, err := gorilla.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", rawURL, err)
	}
	defer conn.Close()

	done := make(chan error, 1)
	go func() {
		done <- readCaptions(conn, out, logger)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// Cleanly close the connection and give the server a moment to answer
		err := conn.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
		if err != nil {
			return nil
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return nil
	}
}

type captionEnvelope struct {
	websocket.TranscriptMessage
	Status    entities.SessionStatus `json:"status"`
	EndReason string                 `json:"end_reason"`
	Message   string                 `json:"message"`
}

func readCaptions(conn *gorilla.Conn, out io.Writer, logger *zap.Logger) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if gorilla.IsCloseError(err, gorilla.CloseNormalClosure, gorilla.CloseGoingAway) {
				return nil
			}
			return err
		}

		var msg captionEnvelope
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("Unreadable message from server", zap.Error(err))
			continue
		}

		switch msg.Type {
		case websocket.MessageTypeTranscript:
			receivedAt, err := time.Parse(time.RFC3339, msg.Timestamp)
			if err != nil {
				receivedAt = time.Now()
			}
			event := entities.TranscriptEvent{
				SessionID:  msg.SessionID,
				Partial:    msg.Partial,
				Text:       msg.Text,
				ReceivedAt: receivedAt.Local(),
			}
			fmt.Fprintln(out, event.Line())
		case websocket.MessageTypeSessionStatus:
			logger.Info("Session status",
				zap.String("sessionID", msg.SessionID),
				zap.String("status", string(msg.Status)),
				zap.String("reason", msg.EndReason))
		case websocket.MessageTypeError:
			logger.Warn("Server error", zap.String("message", msg.Message))
		}
	}
}
