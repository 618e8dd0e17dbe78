// Package session implements one tab's view of the chat room: the
// locally authoritative log, command interpretation, and the presence
// handshake over the broadcast channel.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yuichat/yuichat/internal/chat"
	"github.com/yuichat/yuichat/internal/proto"
	"github.com/yuichat/yuichat/internal/store"
)

// Reserved input strings that manage the log instead of posting.
const (
	commandCut   = "cut"
	commandClear = "clear"
)

const (
	defaultNameMaxLen = 20
	mirrorTimeout     = 5 * time.Second
)

// Enter validation failures. The caller surfaces them; the user retries.
var (
	ErrNameRequired   = errors.New("name is required")
	ErrNameTooLong    = errors.New("name is too long")
	ErrAlreadyEntered = errors.New("already entered")
	ErrNoMirror       = errors.New("no mirror configured")
)

// Transport is the broadcast channel the session publishes on. Delivery
// is at-most-once and fire-and-forget; Publish never reports failure.
type Transport interface {
	Publish(proto.Frame)
	Frames() <-chan proto.Frame
	Close() error
}

// Options configure a session. The zero value is usable.
type Options struct {
	// NameMaxLen bounds display names at enter time, in runes.
	NameMaxLen int
	// ClearOnExit also wipes the persisted slot when the session exits.
	ClearOnExit bool
	// Mirror, when set, receives a copy of every locally created entry.
	Mirror store.Mirror
}

// Snapshot is the engine state the rendering layer reads. Everything in
// it is derived from the log; nothing is maintained independently.
type Snapshot struct {
	Entered      bool
	Log          []chat.Entry
	Participants []chat.Participant
	Ranking      map[string]int
	Roster       []chat.Participant
}

// Session is one tab. Local operations run on the caller's goroutine and
// inbound frames on the Run loop; one mutex serializes both, so log
// mutations within a tab are ordered even though nothing orders them
// across tabs.
type Session struct {
	id     string
	tr     Transport
	store  store.Log
	logger *zerolog.Logger
	opts   Options

	mu      sync.Mutex
	entered bool
	name    string
	color   string
	email   string
	entries []chat.Entry
	roster  map[string]chat.Participant
}

// New constructs a session. The transport subscription must already be
// live before New returns so that Enter's handshake cannot outrun it;
// both bus.Subscribe and relay.Dial guarantee that. Before entering, the
// log is pre-populated from the local slot for preview.
func New(tr Transport, st store.Log, logger *zerolog.Logger, opts Options) *Session {
	if opts.NameMaxLen <= 0 {
		opts.NameMaxLen = defaultNameMaxLen
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Session{
		id:     uuid.NewString(),
		tr:     tr,
		store:  st,
		logger: logger,
		opts:   opts,
		roster: make(map[string]chat.Participant),
	}
	if st != nil {
		s.entries = st.Load()
	}
	return s
}

// ID returns the session's tab identity, used for self-receipt suppression.
func (s *Session) ID() string { return s.id }

// SetEmail sets the optional, purely cosmetic email carried on entries.
func (s *Session) SetEmail(email string) {
	s.mu.Lock()
	s.email = strings.TrimSpace(email)
	s.mu.Unlock()
}

// Run applies inbound frames until ctx is cancelled or the transport
// closes. Start it before Enter so no handshake reply is missed.
func (s *Session) Run(ctx context.Context) {
	if s.tr == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-s.tr.Frames():
			if !ok {
				return
			}
			s.Apply(f)
		}
	}
}

// Enter commits an identity and transitions to the entered state: a
// system notice goes into the log, then the join/req-presence handshake
// runs. No timers are involved; the subscription predates the session.
func (s *Session) Enter(name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > s.opts.NameMaxLen {
		return fmt.Errorf("%w: %d runes max", ErrNameTooLong, s.opts.NameMaxLen)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entered {
		return ErrAlreadyEntered
	}
	s.entered = true
	s.name = name
	s.color = color

	notice := chat.NewSystemEntry(fmt.Sprintf("%sさん、おいでやすぅ。", name))
	s.entries = append([]chat.Entry{notice}, s.loadLocked()...)
	s.persistLocked()
	s.appendMirror(notice)

	s.publish(proto.Frame{Type: proto.TypeChat, Chat: &notice})
	s.publish(proto.Frame{Type: proto.TypeJoin, User: s.identityLocked()})
	s.publish(proto.Frame{Type: proto.TypeReqPresence})

	s.logger.Info().Str("name", name).Msg("entered room")
	return nil
}

// Exit announces the departure, then discards in-memory state
// unconditionally. The persisted slot is also cleared when ClearOnExit
// is set; the broadcast effects cannot be retracted either way.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.entered {
		return
	}

	notice := chat.NewSystemEntry(fmt.Sprintf("%sさん、またきておくれやすぅ。", s.name))
	s.entries = append([]chat.Entry{notice}, s.entries...)
	s.persistLocked()
	s.appendMirror(notice)

	s.publish(proto.Frame{Type: proto.TypeChat, Chat: &notice})
	s.publish(proto.Frame{Type: proto.TypeLeave, User: s.identityLocked()})

	s.logger.Info().Str("name", s.name).Msg("left room")

	s.entered = false
	s.name = ""
	s.color = ""
	s.email = ""
	s.entries = nil
	s.roster = make(map[string]chat.Participant)
	if s.opts.ClearOnExit && s.store != nil {
		s.store.Clear()
	}
}

// Send is the single entry point for user-authored text. Exact trimmed
// "cut" and "clear" are commands; anything else non-empty is posted.
func (s *Session) Send(text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.entered {
		return
	}

	switch trimmed {
	case commandCut:
		s.cutLocked()
	case commandClear:
		s.clearLocked(true)
	default:
		e := chat.NewEntry(s.name, s.color, text, s.email)
		s.entries = append([]chat.Entry{e}, s.entries...)
		s.persistLocked()
		s.appendMirror(e)
		s.publish(proto.Frame{Type: proto.TypeChat, Chat: &e})
	}
}

// Reload discards the in-memory log in favor of whatever the local slot
// holds. Recovery hatch for a diverged view.
func (s *Session) Reload() {
	s.mu.Lock()
	s.entries = s.loadLocked()
	s.mu.Unlock()
}

// ReloadRemote replaces the log with the newest mirror page. Explicit
// user action; the mirror is never merged automatically.
func (s *Session) ReloadRemote(ctx context.Context) error {
	if s.opts.Mirror == nil {
		return ErrNoMirror
	}
	entries, err := s.opts.Mirror.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load mirror: %w", err)
	}
	s.mu.Lock()
	s.entries = entries
	s.persistLocked()
	s.mu.Unlock()
	return nil
}

// Apply dispatches one inbound frame. It is the only mutation path for
// remote state, which keeps the engine testable without a live
// transport. Frames carrying the session's own id are echoes and are
// dropped, so correctness does not depend on whether the transport
// excludes the origin.
func (s *Session) Apply(f proto.Frame) {
	if f.Sender != "" && f.Sender == s.id {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch f.Type {
	case proto.TypeChat:
		if f.Chat == nil {
			return
		}
		s.entries = append([]chat.Entry{*f.Chat}, s.entries...)
		s.persistLocked()
	case proto.TypeReqPresence:
		if s.entered {
			s.publish(proto.Frame{Type: proto.TypeJoin, User: s.identityLocked()})
		}
	case proto.TypeClear:
		s.clearLocked(false)
	case proto.TypeJoin:
		if f.User != nil {
			s.roster[f.User.ID] = *f.User
		}
	case proto.TypeLeave:
		if f.User != nil {
			delete(s.roster, f.User.ID)
		}
	default:
		s.logger.Debug().Str("type", f.Type).Msg("ignoring unknown frame")
	}
}

// Snapshot returns a copy of the state the rendering layer displays.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := make([]chat.Entry, len(s.entries))
	copy(log, s.entries)

	roster := make([]chat.Participant, 0, len(s.roster))
	for _, p := range s.roster {
		roster = append(roster, p)
	}

	return Snapshot{
		Entered:      s.entered,
		Log:          log,
		Participants: chat.Participants(log, time.Now()),
		Ranking:      chat.Ranking(log),
		Roster:       roster,
	}
}

// cutLocked drops every entry whose message contains "img", case
// insensitively. Deliberately not broadcast: each tab prunes its own
// view.
func (s *Session) cutLocked() {
	kept := make([]chat.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.Message), "img") {
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	s.persistLocked()
}

// clearLocked wipes the log, the local slot, and the mirror. The clear
// frame goes out only for the locally issued command; an inbound clear
// is applied without re-broadcasting.
func (s *Session) clearLocked(broadcast bool) {
	s.entries = nil
	if s.store != nil {
		s.store.Clear()
	}
	if m := s.opts.Mirror; m != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			defer cancel()
			if err := m.Clear(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("mirror clear failed")
			}
		}()
	}
	if broadcast {
		s.publish(proto.Frame{Type: proto.TypeClear})
	}
}

func (s *Session) identityLocked() *chat.Participant {
	return &chat.Participant{ID: s.id, Name: s.name, Color: s.color}
}

func (s *Session) loadLocked() []chat.Entry {
	if s.store == nil {
		return nil
	}
	return s.store.Load()
}

func (s *Session) persistLocked() {
	if s.store != nil {
		s.store.Save(s.entries)
	}
}

// appendMirror copies one locally created entry to the mirror, fire and
// forget. Inbound entries are not mirrored: their sender already did,
// and double-inserting from every tab would multiply rows.
func (s *Session) appendMirror(e chat.Entry) {
	m := s.opts.Mirror
	if m == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
		defer cancel()
		if err := m.Append(ctx, e); err != nil {
			s.logger.Warn().Err(err).Str("entry_id", e.ID).Msg("mirror append failed")
		}
	}()
}

// publish stamps the frame with the session id and sends it. Tolerates a
// missing transport; chat is best-effort end to end.
func (s *Session) publish(f proto.Frame) {
	if s.tr == nil {
		return
	}
	f.Sender = s.id
	s.tr.Publish(f)
}
