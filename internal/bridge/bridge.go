// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bridge carries the browser's speech platform over a websocket.
// A Bridge implements ports.Recognizer and ports.Synthesizer: recognition
// and playback run in the page, the session controller drives them from
// the server.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/interviewd/internal/domain/session/ports"
	"github.com/ManuGH/interviewd/internal/log"
	"github.com/ManuGH/interviewd/internal/metrics"
)

var (
	// ErrClosed is returned by speech calls after the socket went away.
	ErrClosed = errors.New("speech bridge closed")
	// ErrSlowClient is returned when the page stopped draining frames; the
	// bridge is dropped.
	ErrSlowClient = errors.New("speech bridge client too slow")
)

type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
	MaxMessageBytes  int64
	// CheckOrigin defaults to same-origin only.
	CheckOrigin func(*http.Request) bool
	Logger      *zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 20 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 64 << 10
	}
	return c
}

type listener struct {
	run uint64
	h   ports.RecognitionHandler
}

// Bridge is one attached browser page.
type Bridge struct {
	conn   *websocket.Conn
	cfg    Config
	logger zerolog.Logger
	caps   Hello

	out       chan ServerMessage
	done      chan struct{}
	closeOnce sync.Once
	// local is set when this side ended the socket.
	local atomic.Bool

	mu        sync.Mutex
	closed    bool
	playbacks map[string]func()
	nextRun   uint64
	active    *listener
}

// Accept upgrades the request and reads the hello frame. On failure the
// socket is closed with a policy violation.
func Accept(w http.ResponseWriter, r *http.Request, cfg Config) (*Bridge, error) {
	cfg = cfg.withDefaults()
	upgrader := websocket.Upgrader{CheckOrigin: cfg.CheckOrigin}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}
	conn.SetReadLimit(cfg.MaxMessageBytes)

	hello, err := readHello(conn, cfg.HandshakeTimeout)
	if err != nil {
		deadline := time.Now().Add(cfg.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "first frame must be hello"), deadline)
		_ = conn.Close()
		return nil, err
	}
	return newBridge(conn, hello, cfg), nil
}

func readHello(conn *websocket.Conn, timeout time.Duration) (Hello, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	mt, data, err := conn.ReadMessage()
	if err != nil {
		return Hello{}, fmt.Errorf("read hello: %w", err)
	}
	if mt != websocket.TextMessage {
		return Hello{}, fmt.Errorf("%w: hello must be a text frame", ErrBadFrame)
	}
	m, err := DecodeClientMessage(data)
	if err != nil {
		return Hello{}, err
	}
	if m.Type != TypeHello {
		return Hello{}, fmt.Errorf("%w: first frame is %q", ErrBadFrame, m.Type)
	}
	return m.hello(), nil
}

func newBridge(conn *websocket.Conn, hello Hello, cfg Config) *Bridge {
	logger := log.WithComponent("bridge")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Bridge{
		conn: conn,
		cfg:  cfg,
		logger: logger.With().
			Bool("recognition", hello.Recognition).
			Bool("synthesis", hello.Synthesis).
			Logger(),
		caps:      hello,
		out:       make(chan ServerMessage, 32),
		done:      make(chan struct{}),
		playbacks: make(map[string]func()),
	}
}

// Capabilities returns what the page announced.
func (b *Bridge) Capabilities() Hello { return b.caps }

// Recognizer exposes the page's speech recognition.
func (b *Bridge) Recognizer() ports.Recognizer { return recognizer{b} }

// Synthesizer exposes the page's speech synthesis.
func (b *Bridge) Synthesizer() ports.Synthesizer { return synthesizer{b} }

// Run pumps frames until the socket closes or ctx ends. Pending playbacks
// are finished and an active listen run is ended before Run returns.
func (b *Bridge) Run(ctx context.Context) error {
	metrics.BridgeAttached(1)
	defer metrics.BridgeAttached(-1)
	b.logger.Info().Str(log.FieldEvent, "bridge.attached").Msg("speech bridge attached")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.readLoop() })
	g.Go(func() error { return b.writeLoop(gctx) })
	err := g.Wait()
	b.shutdown()

	if ctx.Err() != nil || b.local.Load() {
		err = nil
	}
	if err != nil && !isNormalClose(err) {
		b.logger.Warn().Err(err).Str(log.FieldEvent, "bridge.failed").Msg("speech bridge ended with error")
		return err
	}
	b.logger.Info().Str(log.FieldEvent, "bridge.detached").Msg("speech bridge detached")
	return nil
}

// Close ends Run.
func (b *Bridge) Close() error {
	b.local.Store(true)
	b.stop()
	return nil
}

func (b *Bridge) stop() {
	b.closeOnce.Do(func() { close(b.done) })
}

func isNormalClose(err error) bool {
	return errors.Is(err, ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure)
}

func (b *Bridge) readLoop() error {
	for {
		mt, data, err := b.conn.ReadMessage()
		if err != nil {
			b.stop()
			return err
		}
		if mt != websocket.TextMessage {
			continue
		}
		m, err := DecodeClientMessage(data)
		if err != nil {
			b.logger.Debug().Err(err).Str(log.FieldEvent, "bridge.bad_frame").Msg("ignoring malformed frame")
			continue
		}
		b.dispatch(m)
	}
}

func (b *Bridge) dispatch(m ClientMessage) {
	switch m.Type {
	case TypeTranscript:
		b.mu.Lock()
		l := b.active
		b.mu.Unlock()
		if l != nil && l.h.Result != nil {
			l.h.Result(ports.Transcript{Text: m.Text, Final: m.Final})
		}
	case TypeListenEnd:
		b.mu.Lock()
		l := b.active
		b.active = nil
		b.mu.Unlock()
		if l != nil && l.h.End != nil {
			var err error
			if m.Error != "" {
				err = errors.New(m.Error)
			}
			l.h.End(err)
		}
	case TypePlaybackEnd:
		b.mu.Lock()
		done, ok := b.playbacks[m.ID]
		delete(b.playbacks, m.ID)
		b.mu.Unlock()
		if !ok {
			b.logger.Debug().Str(log.FieldUtteranceID, m.ID).Str(log.FieldEvent, "bridge.stale_playback").
				Msg("ignoring playback end of a replaced utterance")
			return
		}
		done()
	case TypeHello:
		b.logger.Debug().Str(log.FieldEvent, "bridge.duplicate_hello").Msg("ignoring repeated hello")
	}
}

func (b *Bridge) writeLoop(ctx context.Context) error {
	ping := time.NewTicker(b.cfg.PingInterval)
	defer ping.Stop()
	defer b.conn.Close()

	for {
		select {
		case <-ctx.Done():
			b.writeClose()
			return ctx.Err()
		case <-b.done:
			b.writeClose()
			return ErrClosed
		case <-ping.C:
			if err := b.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(b.cfg.WriteTimeout)); err != nil {
				return err
			}
		case m := <-b.out:
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			_ = b.conn.SetWriteDeadline(time.Now().Add(b.cfg.WriteTimeout))
			if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) writeClose() {
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(b.cfg.WriteTimeout))
}

func (b *Bridge) shutdown() {
	b.stop()
	b.mu.Lock()
	b.closed = true
	pending := b.playbacks
	b.playbacks = make(map[string]func())
	l := b.active
	b.active = nil
	b.mu.Unlock()

	for _, done := range pending {
		done()
	}
	if l != nil && l.h.End != nil {
		l.h.End(ErrClosed)
	}
}

// send queues m for the write loop without blocking. Callers hold the session
// lock, so a page that falls a full queue behind is disconnected instead.
func (b *Bridge) send(m ServerMessage) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	select {
	case b.out <- m:
		return nil
	default:
		b.logger.Warn().Str(log.FieldEvent, "bridge.backpressure").Str("type", string(m.Type)).
			Msg("outbound queue full, dropping speech bridge")
		b.stop()
		return ErrSlowClient
	}
}

type recognizer struct{ b *Bridge }

func (r recognizer) Supported() bool {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return r.b.caps.Recognition && !r.b.closed
}

// Listen replaces any active run; results of the replaced run are dropped.
func (r recognizer) Listen(_ context.Context, lang string, h ports.RecognitionHandler) (func(), error) {
	b := r.b
	if !b.caps.Recognition {
		return nil, fmt.Errorf("recognition: %w", ports.ErrUnsupported)
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("recognition: %w: %w", ports.ErrUnsupported, ErrClosed)
	}
	b.nextRun++
	run := b.nextRun
	b.active = &listener{run: run, h: h}
	b.mu.Unlock()

	if err := b.send(ServerMessage{Type: TypeListen, Lang: lang}); err != nil {
		b.clearRun(run)
		return nil, fmt.Errorf("recognition: %w: %w", ports.ErrUnsupported, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if b.clearRun(run) {
				_ = b.send(ServerMessage{Type: TypeStopListen})
			}
		})
	}, nil
}

func (b *Bridge) clearRun(run uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active == nil || b.active.run != run {
		return false
	}
	b.active = nil
	return true
}

type synthesizer struct{ b *Bridge }

func (s synthesizer) Supported() bool {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	return s.b.caps.Synthesis && !s.b.closed
}

// Speak sends one utterance. done runs once: on playback_end, on cancel,
// or when the bridge goes away.
func (s synthesizer) Speak(_ context.Context, u ports.Utterance, done func()) (func(), error) {
	b := s.b
	if !b.caps.Synthesis {
		return nil, fmt.Errorf("synthesis: %w", ports.ErrUnsupported)
	}
	if strings.TrimSpace(u.Text) == "" {
		return func() {}, nil
	}

	id := uuid.NewString()
	var once sync.Once
	finish := func() {
		once.Do(func() {
			if done != nil {
				done()
			}
		})
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("synthesis: %w: %w", ports.ErrUnsupported, ErrClosed)
	}
	b.playbacks[id] = finish
	b.mu.Unlock()

	if err := b.send(ServerMessage{Type: TypeSpeak, ID: id, Text: u.Text, Lang: u.Lang, Rate: u.Rate}); err != nil {
		b.dropPlayback(id)
		return nil, fmt.Errorf("synthesis: %w: %w", ports.ErrUnsupported, err)
	}
	b.logger.Debug().Str(log.FieldUtteranceID, id).Str(log.FieldEvent, "bridge.speak").Msg("utterance sent")

	return func() {
		if b.dropPlayback(id) {
			_ = b.send(ServerMessage{Type: TypeCancel, ID: id})
		}
		finish()
	}, nil
}

func (b *Bridge) dropPlayback(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.playbacks[id]; !ok {
		return false
	}
	delete(b.playbacks, id)
	return true
}
