package controller

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
)

// closer is a channel that can be safely closed from more than one
// goroutine exactly once.
type closer struct {
	ch   chan struct{}
	once sync.Once
}

func newCloser() *closer {
	return &closer{ch: make(chan struct{})}
}

func (c *closer) close() {
	c.once.Do(func() { close(c.ch) })
}

// WSConfig controls the cooperative scheduling contract for Serve: the
// delay between rounds, and the heartbeat ping interval/timeout.
type WSConfig struct {
	RoundDelay        time.Duration
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// Serve drives sess to completion over conn: it sends a connection
// confirmation, starts a heartbeat ping loop and a read pump to detect
// peer activity, then runs rounds at cfg.RoundDelay intervals until the
// session terminates or the peer disconnects.
func Serve(conn *websocket.Conn, sess *Session, cfg WSConfig, log *slog.Logger) {
	defer conn.Close()

	var lastSeenNano atomic.Int64
	lastSeenNano.Store(time.Now().UnixNano())
	conn.SetPongHandler(func(string) error {
		lastSeenNano.Store(time.Now().UnixNano())
		return nil
	})

	writeJSON(conn, map[string]any{
		"status":  "connected",
		"message": "WebSocket connection established, optimization starting",
		"routes":  sess.routeIDs,
	})

	done := newCloser()
	defer done.close()
	go heartbeatLoop(conn, cfg, &lastSeenNano, done, log)
	go readLoop(conn, &lastSeenNano, done)

	ticker := time.NewTicker(cfg.RoundDelay)
	defer ticker.Stop()

	for {
		select {
		case <-done.ch:
			return
		case <-ticker.C:
			event, ok := sess.Step()
			if writeJSON(conn, event) != nil {
				return
			}
			if !ok {
				return
			}
		}
	}
}

func heartbeatLoop(conn *websocket.Conn, cfg WSConfig, lastSeenNano *atomic.Int64, done *closer, log *slog.Logger) {
	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done.ch:
			return
		case <-ticker.C:
			lastSeen := time.Unix(0, lastSeenNano.Load())
			if time.Since(lastSeen) > cfg.HeartbeatTimeout {
				if log != nil {
					log.Info("websocket heartbeat timeout, closing")
				}
				done.close()
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				done.close()
				return
			}
		}
	}
}

func readLoop(conn *websocket.Conn, lastSeenNano *atomic.Int64, done *closer) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			done.close()
			return
		}
		lastSeenNano.Store(time.Now().UnixNano())
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
