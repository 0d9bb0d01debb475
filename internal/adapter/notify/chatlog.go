package notify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/rl1809/lootsheet/internal/core/domain"
)

// ChatLog appends chat entries to one zstd-compressed JSONL file per day.
type ChatLog struct {
	dir string
	now func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewChatLog(dir string) *ChatLog {
	return &ChatLog{dir: dir, now: time.Now}
}

func (l *ChatLog) Write(entry domain.ChatEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.now().UTC().Format("2006-01-02")
	if day != l.curDay {
		if err := l.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *ChatLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *ChatLog) rotateLocked(day string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.pathFor(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 32*1024)
	l.curDay = day
	return nil
}

func (l *ChatLog) closeLocked() error {
	var err error
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.enc != nil {
		err = l.enc.Close()
		l.enc = nil
	}
	if l.f != nil {
		_ = l.f.Close()
		l.f = nil
	}
	l.w = nil
	l.curDay = ""
	return err
}

func (l *ChatLog) pathFor(day string) string {
	return filepath.Join(l.dir, fmt.Sprintf("chat-%s.jsonl.zst", day))
}

// ReadChatLog decodes every entry of one chat log file.
func ReadChatLog(path string) ([]domain.ChatEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []domain.ChatEntry
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var e domain.ChatEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return out, fmt.Errorf("decode chat entry: %w", err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
