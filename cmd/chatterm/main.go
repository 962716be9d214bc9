// Package main is the terminal client for the roomchat server. The root
// command signs in, fetches the user's rooms, connects to one, and runs the
// interactive chat UI. Subcommands cover the request/response surfaces:
//
//	chatterm                 sign in and chat
//	chatterm rooms           list your rooms
//	chatterm rooms create    create a room (optionally password-protected)
//	chatterm rooms join      join a room via invite code or room id
//	chatterm signup          register a new account
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roomchat/chat-client/internal/auth"
	"github.com/roomchat/chat-client/internal/directory"
	"github.com/roomchat/chat-client/internal/files"
	"github.com/roomchat/chat-client/internal/metrics"
	"github.com/roomchat/chat-client/internal/session"
)

var rootCmd = &cobra.Command{
	Use:          "chatterm",
	Short:        "Terminal client for the roomchat server",
	SilenceUsage: true,
	RunE:         runChat,
}

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List the rooms you are a member of",
	RunE:  runRoomsList,
}

var roomsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a room",
	RunE:  runRoomsCreate,
}

var roomsJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a room via invite code or room id",
	RunE:  runRoomsJoin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Register a new account",
	RunE:  runSignup,
}

var (
	flagServer   string
	flagUsername string
	flagPassword string

	flagRoom        string
	flagMetricsAddr string

	flagRoomName     string
	flagRoomPassword string
	flagInviteCode   string
	flagRoomID       string
	flagEmail        string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagServer, "server", envOr("CHAT_SERVER", "http://localhost:8000"), "chat server base URL (env CHAT_SERVER)")
	flags.StringVar(&flagUsername, "username", os.Getenv("CHAT_USERNAME"), "username or email to sign in with (env CHAT_USERNAME)")
	flags.StringVar(&flagPassword, "password", os.Getenv("CHAT_PASSWORD"), "password (env CHAT_PASSWORD)")

	rootCmd.Flags().StringVar(&flagRoom, "room", "general", "room id to join on startup")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "optional listen address for Prometheus metrics (e.g. :9100)")

	roomsCreateCmd.Flags().StringVar(&flagRoomName, "name", "", "room name (required)")
	roomsCreateCmd.Flags().StringVar(&flagRoomPassword, "room-password", "", "optional room password")
	roomsJoinCmd.Flags().StringVar(&flagInviteCode, "invite-code", "", "invite code")
	roomsJoinCmd.Flags().StringVar(&flagRoomID, "room-id", "", "room id")
	roomsJoinCmd.Flags().StringVar(&flagRoomPassword, "room-password", "", "room password, if the room has one")
	signupCmd.Flags().StringVar(&flagEmail, "email", "", "email address (required)")

	roomsCmd.AddCommand(roomsCreateCmd, roomsJoinCmd)
	rootCmd.AddCommand(roomsCmd, signupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// signIn exchanges the configured credentials for a bearer token.
func signIn(ctx context.Context) (auth.Credential, error) {
	if flagUsername == "" || flagPassword == "" {
		return auth.Credential{}, fmt.Errorf("no credentials: set --username/--password or CHAT_USERNAME/CHAT_PASSWORD")
	}
	return auth.NewClient(flagServer).SignIn(ctx, flagUsername, flagPassword)
}

// wsBaseURL converts the HTTP server base URL into its WebSocket equivalent.
func wsBaseURL(server string) string {
	switch {
	case strings.HasPrefix(server, "https://"):
		return "wss://" + strings.TrimPrefix(server, "https://")
	case strings.HasPrefix(server, "http://"):
		return "ws://" + strings.TrimPrefix(server, "http://")
	default:
		return server
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	cred, err := signIn(ctx)
	if err != nil {
		cancel()
		return err
	}

	dir := directory.NewClient(flagServer, cred.Token)
	rooms, err := dir.Mine(ctx)
	if err != nil {
		// The room list is a convenience; the startup room still works.
		log.Printf("chatterm: list rooms: %v", err)
	}
	cancel()

	if flagMetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(flagMetricsAddr, mux); err != nil {
				log.Printf("chatterm: metrics listener: %v", err)
			}
		}()
	}

	mgr := session.NewManager(session.Config{
		ServerURL: wsBaseURL(flagServer),
		Token:     cred.Token,
		Username:  cred.Username,
	})
	defer mgr.Close()

	initial := directory.Room{RoomID: flagRoom, Name: flagRoom}
	for _, r := range rooms {
		if r.RoomID == flagRoom || r.Name == flagRoom {
			initial = r
			break
		}
	}
	if err := mgr.SelectRoom(cmd.Context(), initial); err != nil {
		return err
	}

	ui, err := NewChatUI(mgr, dir, files.NewClient(flagServer, cred.Token), rooms)
	if err != nil {
		return err
	}
	defer ui.Close()
	return ui.Run()
}

func runRoomsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cred, err := signIn(ctx)
	if err != nil {
		return err
	}
	rooms, err := directory.NewClient(flagServer, cred.Token).Mine(ctx)
	if err != nil {
		return err
	}

	if len(rooms) == 0 {
		fmt.Println("You are not a member of any room yet.")
		return nil
	}
	fmt.Printf("%-36s  %-24s  %-10s  %s\n", "ROOM ID", "NAME", "INVITE", "PROTECTED")
	for _, r := range rooms {
		protected := ""
		if r.HasPassword {
			protected = "yes"
		}
		fmt.Printf("%-36s  %-24s  %-10s  %s\n", r.RoomID, r.Name, r.InviteCode, protected)
	}
	return nil
}

func runRoomsCreate(cmd *cobra.Command, args []string) error {
	if flagRoomName == "" {
		return fmt.Errorf("--name is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cred, err := signIn(ctx)
	if err != nil {
		return err
	}
	room, err := directory.NewClient(flagServer, cred.Token).Create(ctx, flagRoomName, flagRoomPassword)
	if err != nil {
		return err
	}

	fmt.Printf("Created room %q\n  id:     %s\n  invite: %s\n", room.Name, room.RoomID, room.InviteCode)
	return nil
}

func runRoomsJoin(cmd *cobra.Command, args []string) error {
	if flagInviteCode == "" && flagRoomID == "" {
		return fmt.Errorf("provide --invite-code or --room-id")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	cred, err := signIn(ctx)
	if err != nil {
		return err
	}
	room, err := directory.NewClient(flagServer, cred.Token).Join(ctx, directory.JoinRequest{
		InviteCode: flagInviteCode,
		RoomID:     flagRoomID,
		Password:   flagRoomPassword,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Joined room %q (id: %s)\n", room.Name, room.RoomID)
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	if flagUsername == "" || flagEmail == "" || flagPassword == "" {
		return fmt.Errorf("--username, --email, and --password are required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := auth.NewClient(flagServer).SignUp(ctx, flagUsername, flagEmail, flagPassword); err != nil {
		return err
	}
	fmt.Printf("Account %q created. Sign in with: chatterm --username %s\n", flagUsername, flagUsername)
	return nil
}
