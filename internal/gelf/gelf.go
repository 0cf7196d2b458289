package gelf

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP and implements io.Writer so it can sit
// next to stderr in a zerolog.MultiLevelWriter. Each Write is expected to be
// one zerolog JSON event.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// Write implements io.Writer. Malformed events are still forwarded as a plain
// short_message; the log call itself never fails because of GELF.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.message(p, time.Now()))
	if err != nil {
		return len(p), nil
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

func (w *Writer) message(p []byte, now time.Time) map[string]any {
	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(now.UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var event map[string]any
	if err := json.Unmarshal(p, &event); err != nil {
		msg["short_message"] = strings.TrimRight(string(p), "\n")
		return msg
	}

	short, _ := event["message"].(string)
	if short == "" {
		short = "(no message)"
	}
	msg["short_message"] = short
	if lvl, ok := event["level"].(string); ok {
		msg["level"] = syslogLevel(lvl)
	}
	for k, v := range event {
		switch k {
		case "message", "level", "time":
			continue
		case "id":
			// GELF reserves _id
			k = "event_id"
		}
		msg["_"+k] = flatten(v)
	}
	return msg
}

// syslogLevel maps zerolog level names to syslog severities.
func syslogLevel(level string) int {
	switch level {
	case "panic":
		return 1
	case "fatal":
		return 2
	case "error":
		return 3
	case "warn":
		return 4
	case "info":
		return 6
	default:
		return 7
	}
}

// GELF additional fields must be strings or numbers.
func flatten(v any) any {
	switch t := v.(type) {
	case string, float64:
		return t
	case bool:
		return fmt.Sprint(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
