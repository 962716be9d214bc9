package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/roomchat/chat-client/internal/directory"
	"github.com/roomchat/chat-client/internal/files"
	"github.com/roomchat/chat-client/internal/session"
)

// View names.
const (
	viewMessages = "messages"
	viewRooms    = "rooms"
	viewTyping   = "typing"
	viewInput    = "input"
)

// selectTimeout bounds a room switch triggered from the UI.
const selectTimeout = 15 * time.Second

// ChatUI renders session state into a gocui terminal layout: messages pane,
// rooms sidebar, typing indicator line, and input box. It never mutates
// session state directly beyond the exposed manager actions.
type ChatUI struct {
	gui   *gocui.Gui
	mgr   *session.Manager
	dir   *directory.Client
	files *files.Client

	rooms   []directory.Room
	roomIdx int
	notice  string
}

// NewChatUI builds the terminal UI around an already-connected session.
func NewChatUI(mgr *session.Manager, dir *directory.Client, fc *files.Client, rooms []directory.Room) (*ChatUI, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("chatterm: init ui: %w", err)
	}

	ui := &ChatUI{
		gui:   g,
		mgr:   mgr,
		dir:   dir,
		files: fc,
		rooms: rooms,
	}

	g.SetManagerFunc(ui.layout)
	g.Cursor = true

	if err := ui.bindKeys(); err != nil {
		g.Close()
		return nil, err
	}

	mgr.SetOnChange(ui.refresh)
	return ui, nil
}

// Run drives the UI main loop until quit.
func (ui *ChatUI) Run() error {
	if err := ui.gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return fmt.Errorf("chatterm: ui loop: %w", err)
	}
	return nil
}

// Close releases the terminal.
func (ui *ChatUI) Close() {
	ui.gui.Close()
}

func (ui *ChatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	sidebarWidth := 24
	msgWidth := maxX - sidebarWidth - 1
	msgHeight := maxY - 5

	if v, err := g.SetView(viewMessages, 0, 0, msgWidth, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(viewRooms, msgWidth+1, 0, maxX-1, msgHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Rooms"
		v.Highlight = true
		v.SelBgColor = gocui.ColorBlue
	}

	if v, err := g.SetView(viewTyping, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
	}

	if v, err := g.SetView(viewInput, 0, msgHeight+3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Message"
		v.Editable = true
		v.Editor = gocui.EditorFunc(ui.edit)

		if _, err := g.SetCurrentView(viewInput); err != nil {
			return err
		}
		ui.refresh()
	}

	return nil
}

func (ui *ChatUI) bindKeys() error {
	g := ui.gui

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, ui.quit); err != nil {
		return err
	}
	if err := g.SetKeybinding("", gocui.KeyTab, gocui.ModNone, ui.toggleFocus); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewInput, gocui.KeyEnter, gocui.ModNone, ui.submit); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewRooms, gocui.KeyArrowUp, gocui.ModNone, ui.roomUp); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewRooms, gocui.KeyArrowDown, gocui.ModNone, ui.roomDown); err != nil {
		return err
	}
	if err := g.SetKeybinding(viewRooms, gocui.KeyEnter, gocui.ModNone, ui.roomSelect); err != nil {
		return err
	}
	return nil
}

// edit wraps the default editor so every input change feeds the typing
// signal. Only edge transitions reach the wire.
func (ui *ChatUI) edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
	gocui.DefaultEditor.Edit(v, key, ch, mod)
	ui.mgr.SetTyping(strings.TrimSpace(v.Buffer()) != "")
}

func (ui *ChatUI) quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

// toggleFocus moves between the input box and the rooms sidebar. Leaving the
// input counts as a blur: the stop-typing edge fires.
func (ui *ChatUI) toggleFocus(g *gocui.Gui, v *gocui.View) error {
	if v != nil && v.Name() == viewInput {
		ui.mgr.Blur()
		_, err := g.SetCurrentView(viewRooms)
		return err
	}
	_, err := g.SetCurrentView(viewInput)
	return err
}

// submit sends the input line: slash commands are handled locally, anything
// else goes out as a chat message.
func (ui *ChatUI) submit(g *gocui.Gui, v *gocui.View) error {
	text := strings.TrimSpace(v.Buffer())
	v.Clear()
	if err := v.SetCursor(0, 0); err != nil {
		return err
	}

	if strings.HasPrefix(text, "/") {
		ui.command(text)
		ui.refresh()
		return nil
	}

	if err := ui.mgr.SendMessage(text, ""); err != nil {
		ui.notice = err.Error()
	} else {
		ui.notice = ""
	}
	ui.refresh()
	return nil
}

// command executes a local slash command.
func (ui *ChatUI) command(line string) {
	parts := strings.Fields(line)
	switch parts[0] {
	case "/join":
		if len(parts) < 2 {
			ui.notice = "usage: /join <room-id>"
			return
		}
		ui.switchRoom(directory.Room{RoomID: parts[1], Name: parts[1]})
	case "/upload":
		if len(parts) < 2 {
			ui.notice = "usage: /upload <path>"
			return
		}
		ui.upload(parts[1])
	case "/rooms":
		ui.reloadRooms()
	case "/quit":
		ui.gui.Update(func(g *gocui.Gui) error { return gocui.ErrQuit })
	default:
		ui.notice = "unknown command: " + parts[0]
	}
}

func (ui *ChatUI) switchRoom(room directory.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), selectTimeout)
	defer cancel()

	if err := ui.mgr.SelectRoom(ctx, room); err != nil {
		ui.notice = err.Error()
		return
	}
	ui.notice = ""
}

// upload pushes a file to the active room and sends a chat message carrying
// its reference.
func (ui *ChatUI) upload(path string) {
	room, ok := ui.mgr.ActiveRoom()
	if !ok {
		ui.notice = "no active room"
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := ui.files.UploadFile(ctx, room.RoomID, path)
	if err != nil {
		ui.notice = err.Error()
		return
	}
	if err := ui.mgr.SendMessage(result.OriginalName, result.FileID); err != nil {
		ui.notice = err.Error()
		return
	}
	ui.notice = "uploaded " + result.OriginalName
}

func (ui *ChatUI) reloadRooms() {
	ctx, cancel := context.WithTimeout(context.Background(), selectTimeout)
	defer cancel()

	rooms, err := ui.dir.Mine(ctx)
	if err != nil {
		ui.notice = err.Error()
		return
	}
	ui.rooms = rooms
	if ui.roomIdx >= len(rooms) {
		ui.roomIdx = 0
	}
	ui.notice = ""
}

func (ui *ChatUI) roomUp(g *gocui.Gui, v *gocui.View) error {
	if ui.roomIdx > 0 {
		ui.roomIdx--
	}
	ui.refresh()
	return nil
}

func (ui *ChatUI) roomDown(g *gocui.Gui, v *gocui.View) error {
	if ui.roomIdx < len(ui.rooms)-1 {
		ui.roomIdx++
	}
	ui.refresh()
	return nil
}

func (ui *ChatUI) roomSelect(g *gocui.Gui, v *gocui.View) error {
	if ui.roomIdx < len(ui.rooms) {
		ui.switchRoom(ui.rooms[ui.roomIdx])
	}
	if _, err := g.SetCurrentView(viewInput); err != nil {
		return err
	}
	ui.refresh()
	return nil
}

// refresh re-renders all panes from session state. Safe to call from any
// goroutine; gocui serializes the update.
func (ui *ChatUI) refresh() {
	ui.gui.Update(func(g *gocui.Gui) error {
		if v, err := g.View(viewMessages); err == nil {
			v.Clear()
			room, _ := ui.mgr.ActiveRoom()
			v.Title = fmt.Sprintf("Messages: %s (%s)", room.Name, ui.mgr.State())
			for _, msg := range ui.mgr.Messages() {
				line := fmt.Sprintf("%s: %s", msg.User, msg.Text)
				if msg.File != nil {
					line += fmt.Sprintf(" [file: %s, %d bytes]", msg.File.OriginalName, msg.File.Size)
				}
				fmt.Fprintln(v, line)
			}
		}

		if v, err := g.View(viewRooms); err == nil {
			v.Clear()
			active, _ := ui.mgr.ActiveRoom()
			for i, r := range ui.rooms {
				marker := "  "
				if r.RoomID == active.RoomID {
					marker = "* "
				}
				if i == ui.roomIdx {
					marker = "> "
				}
				fmt.Fprintf(v, "%s%s\n", marker, r.Name)
			}
		}

		if v, err := g.View(viewTyping); err == nil {
			v.Clear()
			if typers := ui.mgr.ActiveTypers(); len(typers) > 0 {
				fmt.Fprintf(v, "%s is typing...", strings.Join(typers, ", "))
			} else if ui.notice != "" {
				fmt.Fprint(v, ui.notice)
			}
		}
		return nil
	})
}
