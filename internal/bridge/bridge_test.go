// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/interviewd/internal/domain/session/ports"
)

type session struct {
	bridge *Bridge
	client *websocket.Conn
	runErr chan error
}

func serve(t *testing.T) (string, chan *Bridge, chan error) {
	t.Helper()
	ready := make(chan *Bridge, 1)
	runErr := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, err := Accept(w, r, Config{
			HandshakeTimeout: time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		})
		if err != nil {
			runErr <- err
			return
		}
		ready <- b
		runErr <- b.Run(context.Background())
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), ready, runErr
}

func attach(t *testing.T, hello map[string]any) *session {
	t.Helper()
	url, ready, runErr := serve(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hello["type"] = TypeHello
	require.NoError(t, conn.WriteJSON(hello))

	select {
	case b := <-ready:
		return &session{bridge: b, client: conn, runErr: runErr}
	case err := <-runErr:
		t.Fatalf("accept failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge not ready")
	}
	return nil
}

func (s *session) read(t *testing.T) ServerMessage {
	t.Helper()
	require.NoError(t, s.client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var m ServerMessage
	require.NoError(t, s.client.ReadJSON(&m))
	return m
}

func (s *session) write(t *testing.T, m map[string]any) {
	t.Helper()
	require.NoError(t, s.client.WriteJSON(m))
}

func TestHandshakeAnnouncesCapabilities(t *testing.T) {
	s := attach(t, map[string]any{"recognition": true, "synthesis": false, "lang": "de-DE"})

	caps := s.bridge.Capabilities()
	assert.True(t, caps.Recognition)
	assert.False(t, caps.Synthesis)
	assert.Equal(t, "de-DE", caps.Lang)

	assert.True(t, s.bridge.Recognizer().Supported())
	assert.False(t, s.bridge.Synthesizer().Supported())

	_, err := s.bridge.Synthesizer().Speak(context.Background(), ports.Utterance{Text: "hi"}, nil)
	require.ErrorIs(t, err, ports.ErrUnsupported)
}

func TestSpeakCompletesOnPlaybackEnd(t *testing.T) {
	s := attach(t, map[string]any{"recognition": true, "synthesis": true})

	var done atomic.Int32
	_, err := s.bridge.Synthesizer().Speak(context.Background(),
		ports.Utterance{Text: "Tell me about yourself.", Lang: "en-US", Rate: 0.9},
		func() { done.Add(1) })
	require.NoError(t, err)

	m := s.read(t)
	assert.Equal(t, TypeSpeak, m.Type)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Tell me about yourself.", m.Text)
	assert.Equal(t, "en-US", m.Lang)
	assert.Equal(t, 0.9, m.Rate)

	s.write(t, map[string]any{"type": TypePlaybackEnd, "id": m.ID})
	require.Eventually(t, func() bool { return done.Load() == 1 }, time.Second, 5*time.Millisecond)

	s.write(t, map[string]any{"type": TypePlaybackEnd, "id": m.ID})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), done.Load())
}

func TestCancelIgnoresLatePlaybackEnd(t *testing.T) {
	s := attach(t, map[string]any{"recognition": true, "synthesis": true})

	var done atomic.Int32
	cancel, err := s.bridge.Synthesizer().Speak(context.Background(),
		ports.Utterance{Text: "first"}, func() { done.Add(1) })
	require.NoError(t, err)
	speak := s.read(t)

	cancel()
	cancel()
	assert.Equal(t, int32(1), done.Load())

	m := s.read(t)
	assert.Equal(t, TypeCancel, m.Type)
	assert.Equal(t, speak.ID, m.ID)

	s.write(t, map[string]any{"type": TypePlaybackEnd, "id": speak.ID})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), done.Load())
}

func TestListenDeliversTranscriptsUntilStopped(t *testing.T) {
	s := attach(t, map[string]any{"recognition": true, "synthesis": true})

	got := make(chan ports.Transcript, 8)
	stop, err := s.bridge.Recognizer().Listen(context.Background(), "en-US", ports.RecognitionHandler{
		Result: func(tr ports.Transcript) { got <- tr },
	})
	require.NoError(t, err)

	m := s.read(t)
	assert.Equal(t, TypeListen, m.Type)
	assert.Equal(t, "en-US", m.Lang)

	s.write(t, map[string]any{"type": TypeTranscript, "text": "I built"})
	s.write(t, map[string]any{"type": TypeTranscript, "text": "I built a cache", "final": true})
	assert.Equal(t, ports.Transcript{Text: "I built"}, <-got)
	assert.Equal(t, ports.Transcript{Text: "I built a cache", Final: true}, <-got)

	stop()
	stop()
	assert.Equal(t, TypeStopListen, s.read(t).Type)

	s.write(t, map[string]any{"type": TypeTranscript, "text": "late", "final": true})
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, got)
}

func TestListenEndReportsError(t *testing.T) {
	s := attach(t, map[string]any{"recognition": true})

	ended := make(chan error, 1)
	_, err := s.bridge.Recognizer().Listen(context.Background(), "en-US", ports.RecognitionHandler{
		End: func(err error) { ended <- err },
	})
	require.NoError(t, err)
	s.read(t)

	s.write(t, map[string]any{"type": TypeListenEnd, "error": "no-speech"})
	select {
	case err := <-ended:
		require.Error(t, err)
		assert.Equal(t, "no-speech", err.Error())
	case <-time.After(time.Second):
		t.Fatal("listen end not delivered")
	}
}

func TestDisconnectFinishesPendingWork(t *testing.T) {
	s := attach(t, map[string]any{"recognition": true, "synthesis": true})

	var done atomic.Int32
	_, err := s.bridge.Synthesizer().Speak(context.Background(), ports.Utterance{Text: "q"}, func() { done.Add(1) })
	require.NoError(t, err)
	ended := make(chan error, 1)
	_, err = s.bridge.Recognizer().Listen(context.Background(), "en-US", ports.RecognitionHandler{
		End: func(err error) { ended <- err },
	})
	require.NoError(t, err)

	require.NoError(t, s.client.Close())

	select {
	case err := <-s.runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
	assert.Equal(t, int32(1), done.Load())
	assert.ErrorIs(t, <-ended, ErrClosed)
	assert.False(t, s.bridge.Recognizer().Supported())

	_, err = s.bridge.Synthesizer().Speak(context.Background(), ports.Utterance{Text: "again"}, nil)
	require.ErrorIs(t, err, ports.ErrUnsupported)
}

func TestServerCloseEndsRunCleanly(t *testing.T) {
	s := attach(t, map[string]any{"synthesis": true})
	require.NoError(t, s.bridge.Close())

	select {
	case err := <-s.runErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}
	_, _, err := s.client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestAcceptRejectsMissingHello(t *testing.T) {
	url, _, runErr := serve(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"type": TypeTranscript, "text": "hi"}))
	select {
	case err := <-runErr:
		require.ErrorIs(t, err, ErrBadFrame)
	case <-time.After(2 * time.Second):
		t.Fatal("accept did not fail")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"hello", `{"type":"hello","recognition":true}`, false},
		{"transcript", `{"type":"transcript","text":"x","final":true}`, false},
		{"playback end", `{"type":"playback_end","id":"a"}`, false},
		{"playback end without id", `{"type":"playback_end"}`, true},
		{"missing type", `{"text":"x"}`, true},
		{"unknown type", `{"type":"dance"}`, true},
		{"not json", `hello`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tt.in))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadFrame)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSendDropsBridgeWhenQueueIsFull(t *testing.T) {
	b := newBridge(nil, Hello{Synthesis: true}, Config{}.withDefaults())
	for i := 0; i < cap(b.out); i++ {
		require.NoError(t, b.send(ServerMessage{Type: TypeCancel}))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- b.send(ServerMessage{Type: TypeCancel}) }()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSlowClient)
	case <-time.After(time.Second):
		t.Fatal("send blocked on a full queue")
	}
	assert.ErrorIs(t, b.send(ServerMessage{Type: TypeCancel}), ErrClosed)
}
