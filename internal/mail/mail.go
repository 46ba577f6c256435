// Package mail отправляет служебные письма (ссылки сброса пароля).
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message - письмо.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer отправляет письма.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultFrom - отправитель по умолчанию.
const DefaultFrom = "webmaster@localhost"

func (m Message) render(sentAt time.Time) string {
	var b strings.Builder
	from := m.From
	if from == "" {
		from = DefaultFrom
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", m.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", sentAt.Format(time.RFC1123Z))
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	b.WriteString(m.Body)
	b.WriteString("\r\n")
	return b.String()
}

// FileBackend пишет каждое письмо в отдельный файл каталога.
type FileBackend struct {
	dir string
	log *slog.Logger
	mu  sync.Mutex
}

func NewFileBackend(dir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mail dir %s: %w", dir, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileBackend{dir: dir, log: log}, nil
}

func (b *FileBackend) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := time.Now().UTC()
	name := fmt.Sprintf("%s-%s.log", now.Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(b.dir, name)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.WriteFile(path, []byte(msg.render(now)), 0o644); err != nil {
		return fmt.Errorf("failed to write mail to %s: %w", path, err)
	}
	b.log.Info("mail saved", "to", msg.To, "subject", msg.Subject, "path", path)
	return nil
}

// LogBackend только пишет письмо в лог.
type LogBackend struct {
	log *slog.Logger
}

func NewLogBackend(log *slog.Logger) *LogBackend {
	if log == nil {
		log = slog.Default()
	}
	return &LogBackend{log: log}
}

func (b *LogBackend) Send(ctx context.Context, msg Message) error {
	b.log.Info("mail", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
