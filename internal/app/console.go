package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/session"
	"github.com/CADX03/AI-Voice-Assistant/internal/transcript"
)

// storeTimeout bounds one transcript write from the read goroutine.
const storeTimeout = 2 * time.Second

// Console prints the conversation to a terminal and records it in a
// [transcript.Store]. It implements [session.Listener] and
// [session.ConnectionListener].
type Console struct {
	out        io.Writer
	store      transcript.Store
	sessionID  string
	exportPath string
	feedback   string
	log        *slog.Logger

	mu sync.Mutex

	endOnce sync.Once
	ended   chan struct{}
}

var (
	_ session.Listener           = (*Console)(nil)
	_ session.ConnectionListener = (*Console)(nil)
)

// NewConsole returns a Console writing to out. When exportPath is non-empty
// the call outcome is saved there. feedback is printed when the conversation
// ends.
func NewConsole(out io.Writer, store transcript.Store, sessionID, exportPath, feedback string, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{
		out:        out,
		store:      store,
		sessionID:  sessionID,
		exportPath: exportPath,
		feedback:   feedback,
		log:        log,
		ended:      make(chan struct{}),
	}
}

// Ended is closed once the backend ends the conversation.
func (c *Console) Ended() <-chan struct{} { return c.ended }

// Printf writes a line to the console output.
func (c *Console) Printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

// OnMessage implements [session.Listener].
func (c *Console) OnMessage(m protocol.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := c.store.Append(ctx, c.sessionID, m); err != nil {
		c.log.Warn("app: recording message", "type", m.Type, "err", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := m.Timestamp.Format(time.TimeOnly)
	sender := transcript.SenderOf(m.Type)
	if m.Type != protocol.TextOutput {
		fmt.Fprintf(c.out, "[%s] %-6s %s\n", stamp, sender, m.Value)
		return
	}

	fmt.Fprintf(c.out, "[%s] %s\n", stamp, sender)
	if o, ok := transcript.ParseOutput(m.Value); ok {
		for _, line := range o.Lines() {
			fmt.Fprintf(c.out, "    %s\n", line)
		}
	} else {
		fmt.Fprintf(c.out, "    %s\n", transcript.CleanOutput(m.Value))
	}
	if c.exportPath != "" {
		if err := transcript.ExportOutput(c.exportPath, m.Value); err != nil {
			c.log.Warn("app: exporting call outcome", "path", c.exportPath, "err", err)
		} else {
			fmt.Fprintf(c.out, "    saved to %s\n", c.exportPath)
		}
	}
}

// OnConversationEnd implements [session.Listener].
func (c *Console) OnConversationEnd() {
	c.endOnce.Do(func() {
		c.Printf("Conversation ended. Thanks for trying the demo!")
		if c.feedback != "" {
			c.Printf("Tell us what you think: %s", c.feedback)
		}
		close(c.ended)
	})
}

// OnBackendError implements [session.Listener].
func (c *Console) OnBackendError(e protocol.BackendError) {
	c.Printf("backend error: %s", e.Message)
}

// OnConnectionClosed implements [session.ConnectionListener].
func (c *Console) OnConnectionClosed(err error) {
	if err != nil {
		c.Printf("connection closed: %v", err)
		return
	}
	c.Printf("connection closed")
}
