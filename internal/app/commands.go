package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/CADX03/AI-Voice-Assistant/internal/catalog"
	"github.com/CADX03/AI-Voice-Assistant/internal/protocol"
	"github.com/CADX03/AI-Voice-Assistant/internal/session"
	"github.com/CADX03/AI-Voice-Assistant/internal/transcript"
)

const helpText = `commands:
  start        start streaming the microphone
  stop         stop streaming
  send <text>  send a text message to the backend
  status       show the session state
  log          show the conversation so far
  help         show this help
  quit         disconnect and exit`

// converse connects to the backend and processes console commands until the
// conversation ends, the input is exhausted or ctx is cancelled.
func (a *App) converse(ctx context.Context) error {
	a.console.Printf("Voice Future LABS | %s", catalog.Describe(a.Params()))
	a.console.Printf("backend %s, session %s", a.url, a.sessionID)

	if err := a.session.Connect(ctx); err != nil {
		a.log.Warn("backend unreachable; retrying on start", "url", a.url, "err", err)
	}

	if a.autoStart {
		a.start(ctx)
	} else {
		a.console.Printf("type \"start\" to talk, \"help\" for commands")
	}

	lines := readLines(ctx, a.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.console.Ended():
			return nil
		case line, ok := <-lines:
			if !ok {
				if !a.autoStart {
					return nil
				}
				// Non-interactive: keep streaming until the backend ends the call.
				lines = nil
				continue
			}
			if quit := a.handleCommand(ctx, line); quit {
				return nil
			}
		}
	}
}

// readLines forwards lines from r until EOF, a read error or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// handleCommand executes one console command. It reports whether the user
// asked to quit.
func (a *App) handleCommand(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch strings.ToLower(cmd) {
	case "":
	case "start":
		a.start(ctx)
	case "stop":
		a.session.StopStreaming()
		a.console.Printf("streaming stopped")
	case "send":
		text := strings.TrimSpace(arg)
		if text == "" {
			a.console.Printf("usage: send <text>")
			return false
		}
		msg := protocol.BackendMessage{Type: "text", Subtype: "input", Value: protocol.String(text)}
		if err := a.session.SendData(ctx, msg); err != nil {
			a.console.Printf("send failed: %v", err)
		}
	case "status":
		a.console.Printf("state %s, backend %s, session %s", a.session.State(), a.url, a.sessionID)
	case "log":
		a.printLog(ctx)
	case "help":
		a.console.Printf("%s", helpText)
	case "quit", "exit":
		return true
	default:
		a.console.Printf("unknown command %q, type \"help\" for commands", cmd)
	}
	return false
}

func (a *App) start(ctx context.Context) {
	err := a.session.StartStreaming(ctx)
	switch {
	case errors.Is(err, session.ErrEnded):
		a.console.Printf("the conversation has ended")
	case err != nil:
		a.console.Printf("start failed: %v", err)
	default:
		a.console.Printf("streaming; type \"stop\" to pause")
	}
}

func (a *App) printLog(ctx context.Context) {
	msgs, err := a.store.List(ctx, a.sessionID)
	if err != nil {
		a.console.Printf("reading conversation: %v", err)
		return
	}
	if len(msgs) == 0 {
		a.console.Printf("no messages yet")
		return
	}
	for _, m := range msgs {
		a.console.Printf("%-6s %s", transcript.SenderOf(m.Type), m.Value)
	}
}
