package checkpoint

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentdesk/internal/llm"
)

const (
	threadsDirName   = "threads"
	threadFileExt    = ".jsonl"
	maxJSONLLineSize = 1024 * 1024
)

// Entry types written to a thread file.
const (
	EntryUser      = "user"
	EntryAssistant = "assistant"
	EntryTool      = "tool"
)

var (
	ErrDirRequired      = errors.New("checkpoint directory is required")
	ErrThreadIDRequired = errors.New("thread id is required")
	ErrInvalidThreadID  = errors.New("invalid thread id")
	ErrThreadNotFound   = errors.New("thread not found")
	ErrUnknownEntryType = errors.New("unknown entry type")
)

// Entry is one append-only record in a thread JSONL file.
type Entry struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Content    string          `json:"content,omitempty"`
	ToolCalls  []llm.ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *llm.ToolResult `json:"tool_result,omitempty"`
	TS         int64           `json:"ts"`
}

// ThreadInfo describes one thread file on disk.
type ThreadInfo struct {
	ID        string
	Path      string
	UpdatedAt time.Time
	SizeBytes int64
}

// Store persists conversation threads as append-only JSONL files.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore constructs a checkpoint store rooted at dir.
func NewStore(dir string) (*Store, error) {
	root := strings.TrimSpace(dir)
	if root == "" {
		return nil, ErrDirRequired
	}
	return &Store{dir: root}, nil
}

// DefaultDir returns the thread directory under a backend data directory.
func DefaultDir(dataDir string) string {
	return filepath.Join(dataDir, threadsDirName)
}

// Dir returns the directory holding thread files.
func (s *Store) Dir() string { return s.dir }

// Append writes messages to the end of a thread.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...llm.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.threadPath(threadID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	var buf strings.Builder
	now := time.Now().Unix()
	for _, msg := range msgs {
		entry, err := entryFromMessage(msg)
		if err != nil {
			return err
		}
		entry.TS = now
		raw, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshal checkpoint entry: %w", err)
		}
		buf.Write(raw)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir %s: %w", s.dir, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open thread file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.WriteString(buf.String()); err != nil {
		return fmt.Errorf("append thread entries: %w", err)
	}
	return nil
}

// Entries reads every raw entry of a thread.
func (s *Store) Entries(ctx context.Context, threadID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.threadPath(threadID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrThreadNotFound, strings.TrimSpace(threadID))
		}
		return nil, fmt.Errorf("open thread file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxJSONLLineSize)

	entries := make([]Entry, 0, 32)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("decode thread line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("decode thread line too large (> %d bytes): %w", maxJSONLLineSize, err)
		}
		return nil, fmt.Errorf("scan thread file: %w", err)
	}
	return entries, nil
}

// Load rebuilds the message list of a thread.
func (s *Store) Load(ctx context.Context, threadID string) ([]llm.Message, error) {
	entries, err := s.Entries(ctx, threadID)
	if err != nil {
		return nil, err
	}
	msgs := make([]llm.Message, 0, len(entries))
	for _, entry := range entries {
		msg, err := entry.Message()
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// List returns known threads sorted by newest first.
func (s *Store) List(ctx context.Context) ([]ThreadInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint dir %s: %w", s.dir, err)
	}

	out := make([]ThreadInfo, 0, len(items))
	for _, item := range items {
		if item.IsDir() || filepath.Ext(item.Name()) != threadFileExt {
			continue
		}
		info, err := item.Info()
		if err != nil {
			return nil, fmt.Errorf("read thread file info %s: %w", item.Name(), err)
		}
		out = append(out, ThreadInfo{
			ID:        strings.TrimSuffix(item.Name(), threadFileExt),
			Path:      filepath.Join(s.dir, item.Name()),
			UpdatedAt: info.ModTime(),
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (s *Store) threadPath(threadID string) (string, error) {
	id := strings.TrimSpace(threadID)
	if id == "" {
		return "", ErrThreadIDRequired
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidThreadID, id)
	}
	return filepath.Join(s.dir, id+threadFileExt), nil
}

func entryFromMessage(msg llm.Message) (Entry, error) {
	entry := Entry{ID: uuid.NewString()}
	switch msg.Role {
	case llm.RoleUser:
		entry.Type = EntryUser
		entry.Content = msg.Text()
	case llm.RoleAssistant:
		entry.Type = EntryAssistant
		entry.Content = msg.Text()
		entry.ToolCalls = msg.ToolCalls
	case llm.RoleTool:
		if msg.ToolResult == nil {
			return Entry{}, fmt.Errorf("%w: tool message without result", ErrUnknownEntryType)
		}
		entry.Type = EntryTool
		result := *msg.ToolResult
		entry.ToolResult = &result
	default:
		return Entry{}, fmt.Errorf("%w: role %q", ErrUnknownEntryType, msg.Role)
	}
	return entry, nil
}

// Message converts the entry back into a conversation message.
func (e Entry) Message() (llm.Message, error) {
	switch e.Type {
	case EntryUser:
		return llm.UserText(e.Content), nil
	case EntryAssistant:
		msg := llm.Message{Role: llm.RoleAssistant, ToolCalls: e.ToolCalls}
		if e.Content != "" {
			msg.Content = []llm.ContentBlock{{Type: llm.ContentTypeText, Text: e.Content}}
		}
		return msg, nil
	case EntryTool:
		if e.ToolResult == nil {
			return llm.Message{}, fmt.Errorf("%w: tool entry %s has no result", ErrUnknownEntryType, e.ID)
		}
		return llm.ToolResultMessage(*e.ToolResult), nil
	default:
		return llm.Message{}, fmt.Errorf("%w: %q", ErrUnknownEntryType, e.Type)
	}
}
