package net

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/gs2go/npcserver/internal/net/packet"
	"go.uber.org/zap"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("npc props "), 500)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, payload, 6); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if buf.Len() >= len(payload) {
		t.Fatalf("frame not compressed: %d bytes", buf.Len())
	}
	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("payload mismatch")
	}
}

func TestReadFrameErrors(t *testing.T) {
	tests := map[string][]byte{
		"short header": {0x05},
		"zero length":  {0x02, 0x00},
		"short body":   {0x10, 0x00, 0x78},
		"not zlib":     {0x05, 0x00, 'a', 'b', 'c'},
	}
	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadFrame(bytes.NewReader(frame)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestReadFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, make([]byte, maxPayload+10), 9); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	_, err := ReadFrame(&buf)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v", err)
	}
}

func newPipeSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	sess := NewSession(server, 1, SessionOptions{InSize: 4, OutSize: 4, CompressLevel: 1}, zap.NewNop())
	sess.Start()
	t.Cleanup(func() {
		sess.Close()
		client.Close()
	})
	return sess, client
}

func TestSessionReceivesFrames(t *testing.T) {
	sess, client := newPipeSession(t)

	go WriteFrame(client, []byte{packet.PLI_VERSION, 0x10, 0x00}, 6)

	select {
	case got := <-sess.InQueue:
		if !bytes.Equal(got, []byte{packet.PLI_VERSION, 0x10, 0x00}) {
			t.Fatalf("payload = %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no packet queued")
	}
}

func TestSessionFlushWritesFrames(t *testing.T) {
	sess, client := newPipeSession(t)

	sess.Send([]byte{packet.PLO_LEVELNAME, 1, 'a'})
	if sess.Pending() != 1 {
		t.Fatalf("pending = %d", sess.Pending())
	}
	sess.FlushOutput()
	if sess.Pending() != 0 {
		t.Fatal("buffer kept after flush")
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := ReadFrame(client)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if !bytes.Equal(got, []byte{packet.PLO_LEVELNAME, 1, 'a'}) {
		t.Fatalf("frame = %v", got)
	}
}

func TestSessionClose(t *testing.T) {
	sess, _ := newPipeSession(t)
	sess.Close()
	sess.Close()
	if !sess.IsClosed() || sess.State() != packet.StateDisconnecting {
		t.Fatalf("closed=%v state=%s", sess.IsClosed(), sess.State())
	}
	sess.Send([]byte{1})
	if sess.Pending() != 0 {
		t.Fatal("closed session buffered a packet")
	}
}

func TestServerAcceptsSessions(t *testing.T) {
	srv, err := NewServer("127.0.0.1:0", SessionOptions{InSize: 1, OutSize: 1, CompressLevel: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go srv.AcceptLoop()
	defer srv.Shutdown()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case sess := <-srv.NewSessions():
		if sess.ID != 1 || sess.State() != packet.StateHandshake {
			t.Fatalf("session %d state %s", sess.ID, sess.State())
		}
		store := NewSessionStore()
		store.Add(sess)
		if store.Get(1) != sess || store.Len() != 1 {
			t.Fatal("store lookup")
		}
		store.Remove(1)
		if store.Len() != 0 {
			t.Fatal("store remove")
		}
		sess.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("no session accepted")
	}

	srv.NotifyDead(1)
	if id := <-srv.DeadSessions(); id != 1 {
		t.Fatalf("dead = %d", id)
	}
}
