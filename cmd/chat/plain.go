package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omochice/relay-chat/internal/export"
	"github.com/omochice/relay-chat/internal/render"
	"github.com/omochice/relay-chat/internal/session"
	"golang.org/x/sync/errgroup"
)

const namePrompt = "Enter your name:"

// console serializes writes from the printer and the command loop.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) println(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format+"\n", args...)
}

// runPlain is the line-mode client: received entries are printed as they
// arrive and each input line is a message or a slash command. It returns
// when input ends, /quit is entered, or the connection closes.
func runPlain(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) error {
	con := &console{out: out}
	lines := make(chan string)

	// The scanner cannot be interrupted; it exits when in is closed.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-s.Done():
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	con.println("Connecting to %s...", s.URL())
	if _, ok := s.Identity(); !ok {
		con.println(namePrompt)
	}

	g.Go(func() error {
		defer cancel()
		return printUpdates(ctx, s, con)
	})
	g.Go(func() error {
		defer cancel()
		return readCommands(ctx, s, lines, con)
	})

	return g.Wait()
}

// resyncInterval bounds how long an entry can wait for printing when the
// update that announced it was dropped.
const resyncInterval = 200 * time.Millisecond

// printUpdates treats updates as a wake-up only and prints from the log,
// so entries are never lost to a full update channel.
func printUpdates(ctx context.Context, s *session.Session, con *console) error {
	p := &printer{s: s, con: con, state: session.StateConnecting}
	ticker := time.NewTicker(resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-s.Updates():
			if !ok {
				p.sync()
				return nil
			}
			if u.Kind == session.UpdateReset {
				p.last = uuid.Nil
			}
		case <-ticker.C:
		}

		if closed := p.sync(); closed {
			return nil
		}
	}
}

// printer tracks what line mode has already shown.
type printer struct {
	s     *session.Session
	con   *console
	last  uuid.UUID
	state session.State
}

// sync prints entries after the last printed one and announces state
// changes. It reports whether the session is closed.
func (p *printer) sync() bool {
	// State first: once closed, the log read below is complete.
	state := p.s.State()
	entries := p.s.Entries()
	start := 0
	if p.last != uuid.Nil {
		// a missing entry means the log was reset
		if i := slices.IndexFunc(entries, func(e session.Entry) bool { return e.ID == p.last }); i >= 0 {
			start = i + 1
		}
	}
	for _, e := range entries[start:] {
		if e.Origin == session.OriginReceived {
			p.con.println("%s", render.PlainLine(e))
		}
		p.last = e.ID
	}

	if state == p.state {
		return state == session.StateClosed
	}
	p.state = state

	switch state {
	case session.StateOpen:
		p.con.println("* connected")
	case session.StateClosed:
		if err := p.s.Err(); err != nil {
			p.con.println("* disconnected: %v", err)
		} else {
			p.con.println("* disconnected")
		}
		return true
	}
	return false
}

func readCommands(ctx context.Context, s *session.Session, lines <-chan string, con *console) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := handleLine(s, line, con); quit {
				return nil
			}
		}
	}
}

// handleLine runs one input line and reports whether the client should exit.
func handleLine(s *session.Session, line string, con *console) bool {
	trimmed := strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(trimmed, " ")

	switch cmd {
	case "/quit":
		return true
	case "/reset":
		s.Reset()
		con.println("* left the chat")
		con.println(namePrompt)
		return false
	case "/state":
		status := s.State().String()
		if err := s.Err(); err != nil {
			status += ": " + err.Error()
		}
		con.println("* %s", status)
		return false
	case "/save":
		path := strings.TrimSpace(arg)
		if path == "" {
			con.println("! usage: /save <file.jsonl|.yaml|.md|.pb>")
			return false
		}
		t := export.Snapshot(s, time.Now())
		if err := export.SaveFile(path, t); err != nil {
			con.println("! %v", err)
			return false
		}
		con.println("* saved %d entries to %s", len(t.Records), path)
		return false
	}

	if _, ok := s.Identity(); !ok {
		if err := s.SetIdentity(line); err != nil {
			con.println("! %v", err)
			con.println(namePrompt)
			return false
		}
		id, _ := s.Identity()
		con.println("* joined as %s", id.Name)
		return false
	}

	if trimmed == "" {
		return false
	}
	if !s.Send(line) {
		con.println("! message not sent (%s)", s.State())
	}
	return false
}
