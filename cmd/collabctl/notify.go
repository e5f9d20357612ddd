package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lllypuk/collabfront/internal/application/notify"
)

const (
	notificationsPath  = "/api/v1/notifications"
	defaultNotifyWait  = 10 * time.Second
	maxErrorBodyLength = 4096
)

// notificationPayload mirrors the body of POST /api/v1/notifications.
type notificationPayload struct {
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	Message  string `json:"message,omitempty"`
	Duration *int64 `json:"duration,omitempty"`
}

type notificationSender interface {
	Send(ctx context.Context, p notificationPayload) (int, error)
}

// NewNotifyCmd creates the notify command.
func NewNotifyCmd(s *session, newSender func(serverURL string, timeout time.Duration) notificationSender) *cobra.Command {
	if newSender == nil {
		panic("NewNotifyCmd: sender factory cannot be nil")
	}

	var serverURL string
	var message string
	var duration time.Duration
	var timeout time.Duration

	notifyCmd := &cobra.Command{
		Use:   "notify <success|error|warning|info> <title...>",
		Short: "Show a toast in every browser connected to the server",
		Long: `Show a toast in every browser connected to the server.

The toast uses the server's default duration for its type unless --duration
is given. --duration 0 keeps the toast until it is dismissed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := notify.Type(strings.ToLower(args[0]))
			if !kind.IsValid() {
				return fmt.Errorf("%w: %q", notify.ErrInvalidType, args[0])
			}

			p := notificationPayload{
				Type:    string(kind),
				Title:   strings.Join(args[1:], " "),
				Message: message,
			}
			if cmd.Flags().Changed("duration") {
				if duration < 0 {
					return fmt.Errorf("duration must not be negative")
				}
				ms := duration.Milliseconds()
				p.Duration = &ms
			}

			if serverURL == "" {
				serverURL = "http://" + s.cfg.Server.Address()
			}

			id, err := newSender(serverURL, timeout).Send(commandContext(cmd), p)
			if err != nil {
				return err
			}
			s.logger.Debug("notification sent", "id", id, "server", serverURL)
			printOK(cmd.OutOrStdout(), "notification %d shown", id)
			return nil
		},
	}

	notifyCmd.Flags().StringVar(&serverURL, "server", "", "Server base URL (default: from server.host and server.port)")
	notifyCmd.Flags().StringVarP(&message, "message", "m", "", "Body text under the title")
	notifyCmd.Flags().DurationVarP(&duration, "duration", "d", 0, "How long the toast stays visible")
	notifyCmd.Flags().DurationVar(&timeout, "timeout", defaultNotifyWait, "HTTP request timeout")

	return notifyCmd
}

// httpNotifier posts notifications to a running server.
type httpNotifier struct {
	baseURL string
	client  *http.Client
}

func newHTTPNotifier(serverURL string, timeout time.Duration) notificationSender {
	return &httpNotifier{
		baseURL: strings.TrimRight(serverURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope is the server's response wrapper.
type envelope struct {
	Success bool `json:"success"`
	Data    struct {
		ID int `json:"id"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (n *httpNotifier) Send(ctx context.Context, p notificationPayload) (int, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+notificationsPath, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if decodeErr := json.Unmarshal(raw, &env); decodeErr != nil {
		return 0, fmt.Errorf("server answered %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		if env.Error != nil {
			return 0, fmt.Errorf("server answered %d: %s: %s", resp.StatusCode, env.Error.Code, env.Error.Message)
		}
		return 0, fmt.Errorf("server answered %d", resp.StatusCode)
	}

	return env.Data.ID, nil
}
