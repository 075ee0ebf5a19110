package conn

import (
	"bytes"
	"net"
	"testing"
	"time"
)

func TestMessagesDeliversShortReadBoundary(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	c := NewWithLimits(server, DefaultMessageCap, DefaultIdleTimeout)
	defer c.Close()

	go func() {
		client.Write([]byte("GET / HTTP/1.1\r\n\r\n"))
	}()

	msg, err := c.Messages()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(msg, []byte("GET / HTTP/1.1\r\n\r\n")) {
		t.Fatalf("unexpected message: %q", msg)
	}
	if c.MessageCount() != 1 {
		t.Fatalf("expected counter 1, got %d", c.MessageCount())
	}
}

func TestMessagesCapacityExceeded(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	c := NewWithLimits(server, 1, DefaultIdleTimeout)
	defer c.Close()

	go client.Write([]byte("a"))
	if _, err := c.Messages(); err != nil {
		t.Fatal(err)
	}

	go client.Write([]byte("b"))
	if _, err := c.Messages(); err == nil {
		t.Fatal("expected capacity error on second message with cap=1")
	}
}

func TestMessagesIdleTimeout(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	c := NewWithLimits(server, DefaultMessageCap, 30*time.Millisecond)
	defer c.Close()

	if _, err := c.Messages(); err == nil {
		t.Fatal("expected idle timeout error")
	}
}

func TestWriteSerializesUnderMutex(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := NewWithLimits(server, DefaultMessageCap, DefaultIdleTimeout)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 5)
		client.Read(buf)
		close(done)
	}()

	if err := c.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	<-done
}
