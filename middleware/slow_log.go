package middleware

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/asyncsql/asyncsql/client"
)

// SlowLogMiddleware reports FetchAll executions that take longer than the
// configured threshold. Entries go to LogPath when set, otherwise to
// standard output.
type SlowLogMiddleware struct {
	Threshold time.Duration
	LogPath   string

	logger *log.Logger
	file   *os.File
}

func NewSlowLog(threshold time.Duration, logPath string) *SlowLogMiddleware {
	return &SlowLogMiddleware{Threshold: threshold, LogPath: logPath}
}

// SetOutput redirects slow-query entries to w, which is useful in tests.
// Calling it before Init takes precedence over LogPath.
func (m *SlowLogMiddleware) SetOutput(w io.Writer) {
	m.logger = log.New(w, "[SLOW SQL] ", log.LstdFlags)
}

func (m *SlowLogMiddleware) Name() string { return "SlowLog" }

func (m *SlowLogMiddleware) Init(c *client.Client) error {
	if m.logger != nil {
		return nil
	}
	w := io.Writer(os.Stdout)
	if m.LogPath != "" {
		f, err := os.OpenFile(m.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("slow log: open %s: %w", m.LogPath, err)
		}
		m.file = f
		w = f
	}
	m.logger = log.New(w, "[SLOW SQL] ", log.LstdFlags)
	return nil
}

func (m *SlowLogMiddleware) Shutdown() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}

func (m *SlowLogMiddleware) Process(ctx context.Context, query string, args []any, next client.QueryFunc) (*client.ResultSet, error) {
	start := time.Now()
	rs, err := next(ctx, query, args)
	took := time.Since(start)
	if took > m.Threshold {
		rows := 0
		if rs != nil {
			rows = len(rs.Rows)
		}
		m.logger.Printf("took=%v sql=%s args=%v rows=%d err=%v", took, query, args, rows, err)
	}
	return rs, err
}
