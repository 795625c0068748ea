// Package discord relays server events to a Discord channel and relays
// channel messages back into the game as "say" commands.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

const (
	// queueSize bounds outbound messages waiting for Discord.
	queueSize = 100

	// maxRelayRunes caps the text of a relayed Discord message.
	maxRelayRunes = 200

	commandTimeout = 5 * time.Second
)

// ErrMissingCredentials is returned by New without a token or channel.
var ErrMissingCredentials = errors.New("discord: token and channel ID required")

// Commander sends a console command to the server.
// mcconsole.Server and rcon.Client implement it.
type Commander interface {
	SendCommand(ctx context.Context, command string) error
}

// Config configures a Bridge.
type Config struct {
	Token     string
	ChannelID string

	// Events limits which event types are posted. Empty means
	// DefaultEvents.
	Events []event.Type

	// Relay enables relaying channel messages into the game.
	Relay bool

	Logger *slog.Logger
}

// DefaultEvents are the event types posted when Config.Events is empty.
func DefaultEvents() []event.Type {
	return event.Types()
}

// Bridge posts formatted events to one channel. Events are queued and sent
// from Run, so OnEvent never blocks the console reader; when the queue is
// full new messages are dropped.
type Bridge struct {
	session   *discordgo.Session
	channelID string
	commander Commander
	relay     bool
	allowed   map[event.Type]bool
	logger    *slog.Logger

	queue chan string

	// botUserID is set from the Ready event, on discordgo's goroutine.
	mu        sync.Mutex
	botUserID string

	// send posts one message. Replaced in tests.
	send func(channelID, content string) error
}

// New creates a Bridge. commander receives relayed messages and may be
// nil when Relay is off. No connection is made until Run.
func New(cfg Config, commander Commander) (*Bridge, error) {
	if cfg.Token == "" || cfg.ChannelID == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Relay && commander == nil {
		return nil, errors.New("discord: relay requires a command target")
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discordgo session: %w", err)
	}

	b := newBridge(cfg, commander)
	b.session = session
	b.send = func(channelID, content string) error {
		_, err := session.ChannelMessageSend(channelID, content)
		return err
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessage)
	return b, nil
}

func newBridge(cfg Config, commander Commander) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	types := cfg.Events
	if len(types) == 0 {
		types = DefaultEvents()
	}
	allowed := make(map[event.Type]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return &Bridge{
		channelID: cfg.ChannelID,
		commander: commander,
		relay:     cfg.Relay,
		allowed:   allowed,
		logger:    logger,
		queue:     make(chan string, queueSize),
	}
}

// OnEvent queues ev for posting if its type is enabled.
func (b *Bridge) OnEvent(ev event.Event) {
	if !b.allowed[ev.Type] {
		return
	}
	b.enqueue(FormatEvent(ev))
}

// OnTransition posts stop and crash notices.
func (b *Bridge) OnTransition(tr event.Transition) {
	b.enqueue(FormatTransition(tr))
}

func (b *Bridge) enqueue(msg string) {
	if msg == "" {
		return
	}
	select {
	case b.queue <- msg:
	default:
		b.logger.Warn("discord queue full, dropping message")
	}
}

// Run connects to Discord and posts queued messages until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	defer b.session.Close()

	b.fanOut(ctx)
	return nil
}

// fanOut posts queued messages until ctx is done, then flushes what is
// already queued.
func (b *Bridge) fanOut(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.flush()
			return
		case msg := <-b.queue:
			b.post(msg)
		}
	}
}

func (b *Bridge) flush() {
	for {
		select {
		case msg := <-b.queue:
			b.post(msg)
		default:
			return
		}
	}
}

func (b *Bridge) post(msg string) {
	if err := b.send(b.channelID, msg); err != nil {
		b.logger.Warn("send to discord", "error", err)
	}
}

func (b *Bridge) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	b.mu.Lock()
	b.botUserID = r.User.ID
	b.mu.Unlock()
	b.logger.Info("discord bot connected", "user", r.User.Username)
}

func (b *Bridge) isSelf(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.botUserID != "" && userID == b.botUserID
}

func (b *Bridge) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if !b.relay || m.Author == nil {
		return
	}
	if m.Author.Bot || b.isSelf(m.Author.ID) {
		return
	}
	if m.ChannelID != b.channelID || m.Content == "" {
		return
	}

	author := m.Author.GlobalName
	if author == "" {
		author = m.Author.Username
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := b.commander.SendCommand(ctx, RelayCommand(author, m.Content)); err != nil {
		b.logger.Warn("relay discord message", "author", author, "error", err)
	}
}

// RelayCommand builds the in-game "say" command for a Discord message.
// Newlines become spaces and text is cut to 200 characters.
func RelayCommand(author, content string) string {
	text := strings.Join(strings.Fields(strings.ReplaceAll(content, "\n", " ")), " ")
	if utf8.RuneCountInString(text) > maxRelayRunes {
		runes := []rune(text)
		text = string(runes[:maxRelayRunes]) + "..."
	}
	author = strings.Join(strings.Fields(author), " ")
	return fmt.Sprintf("say [Discord] %s: %s", author, text)
}

// FormatEvent renders ev as a Discord message, or "" for unknown types.
func FormatEvent(ev event.Event) string {
	player := escapeMarkdown(ev.Player)
	switch ev.Type {
	case event.Started:
		return fmt.Sprintf("🟢 Server started in %.1fs", ev.BootSeconds)
	case event.Joined:
		return fmt.Sprintf("➡️ **%s** joined the game", player)
	case event.Left:
		return fmt.Sprintf("⬅️ **%s** left the game", player)
	case event.LostConnection:
		return fmt.Sprintf("📡 **%s** lost connection", player)
	case event.Said:
		return fmt.Sprintf("💬 **%s**: %s", player, escapeMarkdown(ev.Text))
	case event.Action:
		return fmt.Sprintf("✨ *%s %s*", player, escapeMarkdown(ev.Text))
	case event.EarnedAchievement:
		return fmt.Sprintf("🏆 **%s** earned **%s**", player, escapeMarkdown(ev.Achievement))
	case event.Died:
		return fmt.Sprintf("💀 **%s** %s", player, escapeMarkdown(ev.Cause))
	default:
		return ""
	}
}

// FormatTransition renders stop and crash transitions; other transitions
// render as "".
func FormatTransition(tr event.Transition) string {
	switch tr.To {
	case event.StateStopped:
		return "🔴 Server stopped"
	case event.StateFailed:
		if tr.Exit != nil {
			return fmt.Sprintf("💥 Server crashed (%s)", tr.Exit)
		}
		return "💥 Server failed to start"
	default:
		return ""
	}
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
	">", `\>`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
