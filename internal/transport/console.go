package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"bet-engine-go/internal/models"

	"go.uber.org/zap"
)

// Console adapts stdin/stdout into the engine's transport contract for
// local use. Buttons render as a numbered list; typing the number
// presses the button, "/photo <ref>" simulates a payment proof upload,
// anything else is free text.
type Console struct {
	userId      int64
	username    string
	displayName string

	in  io.Reader
	out io.Writer

	actions chan models.UserAction

	mu      sync.Mutex
	buttons []models.ButtonRef
}

func NewConsole(userId int64, username, displayName string, in io.Reader, out io.Writer) *Console {
	return &Console{
		userId:      userId,
		username:    username,
		displayName: displayName,
		in:          in,
		out:         out,
		actions:     make(chan models.UserAction, 16),
	}
}

func (c *Console) Actions() <-chan models.UserAction { return c.actions }

// Start reads lines until EOF or context cancellation, then closes the
// action channel so the dispatcher drains and stops.
func (c *Console) Start(ctx context.Context) {
	go func() {
		defer close(c.actions)

		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case <-ctx.Done():
				return
			default:
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			c.actions <- c.resolve(line)
		}
		if err := scanner.Err(); err != nil {
			zap.L().Warn("Console input closed with error", zap.Error(err))
		}
	}()
}

func (c *Console) resolve(line string) models.UserAction {
	action := models.UserAction{
		UserId:      c.userId,
		Username:    c.username,
		DisplayName: c.displayName,
	}

	if ref, ok := strings.CutPrefix(line, "/photo "); ok {
		action.Kind = models.ActionPhoto
		action.PhotoRef = strings.TrimSpace(ref)
		return action
	}

	if n, err := strconv.Atoi(line); err == nil {
		c.mu.Lock()
		buttons := c.buttons
		c.mu.Unlock()
		if n >= 1 && n <= len(buttons) {
			action.Kind = models.ActionButton
			action.Button = buttons[n-1].Data
			return action
		}
	}

	action.Kind = models.ActionText
	action.Text = line
	return action
}

func (c *Console) Render(_ context.Context, view models.View) error {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(view.Text)
	b.WriteString("\n")

	var flat []models.ButtonRef
	index := 1
	for _, row := range view.Buttons {
		for _, button := range row {
			fmt.Fprintf(&b, "  [%d] %s\n", index, button.Label)
			flat = append(flat, button)
			index++
		}
	}
	if len(view.VoiceAudio) > 0 {
		fmt.Fprintf(&b, "  (voice clip: %d bytes)\n", len(view.VoiceAudio))
	}

	c.mu.Lock()
	c.buttons = flat
	c.mu.Unlock()

	_, err := io.WriteString(c.out, b.String())
	return err
}
