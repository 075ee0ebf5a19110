package server

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/janstaffa/cree-go/internal/httpparse"
	"github.com/janstaffa/cree-go/internal/httpresp"
	"github.com/janstaffa/cree-go/internal/router"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestPlainHTTPEcho(t *testing.T) {
	rt := router.New()
	rt.Fallback(func(req *httpparse.Request, resp *httpresp.Response) {
		resp.SetStatus(httpresp.StatusOK)
		resp.Write([]byte("Hello"))
	})
	srv := New(rt)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.ListenAndServe(ctx, addr)
	waitForListener(t, addr)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	resp := readResponse(t, conn)
	if !strings.Contains(resp, "HTTP/1.1 200 OK") {
		t.Fatalf("missing status line: %q", resp)
	}
	if !strings.Contains(resp, "Content-Length: 5") {
		t.Fatalf("missing content-length: %q", resp)
	}
	if !strings.HasSuffix(resp, "Hello") {
		t.Fatalf("missing body: %q", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rt := router.New()
	srv := New(rt)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.ListenAndServe(ctx, addr)
	waitForListener(t, addr)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("PUT / HTTP/1.1\r\n\r\n")); err != nil {
		t.Fatal(err)
	}

	resp := readResponse(t, conn)
	if !strings.Contains(resp, "HTTP/1.1 405") {
		t.Fatalf("expected 405, got %q", resp)
	}
	if !strings.Contains(resp, "Allow: GET,HEAD,POST") {
		t.Fatalf("missing Allow header: %q", resp)
	}
}

func waitForListener(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c, err := net.Dial("tcp", addr)
		if err == nil {
			c.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("listener at %s never came up", addr)
}

func readResponse(t *testing.T, conn net.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sb strings.Builder
	r := bufio.NewReader(conn)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			sb.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return sb.String()
}
