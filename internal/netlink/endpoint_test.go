package netlink

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestEndpointConnectAndWriteRead(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 5)
		n, _ := conn.Read(buf)
		conn.Write(buf[:n])
	}()

	ep := NewEndpoint(ln.Addr().String())
	if err := ep.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ep.Close()

	if !ep.Connected() {
		t.Fatalf("Connected: expected true after successful Connect")
	}

	if _, err := ep.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 5)
	n, err := ep.Read(buf)
	if err != nil || string(buf[:n]) != "hello" {
		t.Fatalf("Read = %q, %v; want hello, nil", buf[:n], err)
	}
	<-done
}

func TestEndpointConnectFailsWithoutListener(t *testing.T) {
	ep := NewEndpoint("127.0.0.1:1")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ep.Connect(ctx); err == nil {
		t.Fatalf("Connect to a closed port: expected error")
	}
}

func TestEndpointReadWriteBeforeConnect(t *testing.T) {
	ep := NewEndpoint("127.0.0.1:0")
	if _, err := ep.Write([]byte("x")); err == nil {
		t.Fatalf("Write before Connect: expected error")
	}
	if _, err := ep.Read(make([]byte, 1)); err == nil {
		t.Fatalf("Read before Connect: expected error")
	}
}

func TestEndpointReadFrameTimesOutWithoutError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(200 * time.Millisecond)
	}()

	ep := NewEndpoint(ln.Addr().String())
	if err := ep.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ep.Close()

	_, ok, err := ep.ReadFrame(36, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadFrame: unexpected error %v", err)
	}
	if ok {
		t.Fatalf("ReadFrame: expected ok=false on timeout with nothing sent")
	}
}

func TestEndpointReadFrameReturnsData(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()
	payload := make([]byte, 36)
	for i := range payload {
		payload[i] = byte(i)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(payload)
	}()

	ep := NewEndpoint(ln.Addr().String())
	if err := ep.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ep.Close()

	buf, ok, err := ep.ReadFrame(36, 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("ReadFrame = ok=%v err=%v; want ok=true err=nil", ok, err)
	}
	if string(buf) != string(payload) {
		t.Fatalf("ReadFrame data mismatch")
	}
}

func TestEndpointPingRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		n, _ := conn.Read(buf)
		conn.Write(buf[:n])
	}()

	ep := NewEndpoint(ln.Addr().String())
	if err := ep.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer ep.Close()

	if err := ep.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
