// Package artifact 负责 cycle 产物的落盘：每个 cycle 一个 JSON 文件，
// 文件名按时间排序，成功与失败的 cycle 都会持久化一份。
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketpipe/internal/contracts"
	"marketpipe/internal/logger"
	"marketpipe/internal/pkg/jsonutil"
)

const cycleIDTimeLayout = "2006-01-02_15-04-05"

// NewCycleID builds a sortable cycle identifier: wall-clock prefix plus a
// short random suffix so two cycles started in the same second never collide.
func NewCycleID(now time.Time) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return now.Format(cycleIDTimeLayout) + "_" + suffix
}

// FileStore writes one JSON file per finalized cycle under a flat directory.
type FileStore struct {
	dir        string
	keepLatest int
	log        logger.StageLogger
}

func NewFileStore(dir string, keepLatest int) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("artifact store: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir, keepLatest: keepLatest, log: logger.Stage("artifact")}, nil
}

func (s *FileStore) Dir() string { return s.dir }

// Save persists the artifact atomically: write to a temp file in the same
// directory, then rename over the final path. Saving the same artifact twice
// produces byte-identical content.
func (s *FileStore) Save(art *contracts.CycleArtifact) (string, error) {
	if art == nil {
		return "", fmt.Errorf("artifact store: nil artifact")
	}
	if art.CycleID == "" {
		return "", fmt.Errorf("artifact store: artifact has no cycle_id")
	}
	data, err := jsonutil.MarshalIndentStable(art)
	if err != nil {
		return "", fmt.Errorf("artifact store: encode %s: %w", art.CycleID, err)
	}

	final := filepath.Join(s.dir, art.CycleID+".json")
	tmp, err := os.CreateTemp(s.dir, "."+art.CycleID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("artifact store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("artifact store: write %s: %w", art.CycleID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("artifact store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("artifact store: rename %s: %w", art.CycleID, err)
	}

	s.prune()
	return final, nil
}

// Load reads one artifact back by cycle ID.
func (s *FileStore) Load(cycleID string) (*contracts.CycleArtifact, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, cycleID+".json"))
	if err != nil {
		return nil, err
	}
	var art contracts.CycleArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("artifact store: decode %s: %w", cycleID, err)
	}
	return &art, nil
}

// LatestN returns up to n cycle IDs, newest first. File names sort
// lexicographically in time order, so no mtime inspection is needed.
func (s *FileStore) LatestN(n int) ([]string, error) {
	ids, err := s.listIDs()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(ids) > n {
		ids = ids[:n]
	}
	return ids, nil
}

func (s *FileStore) listIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// prune 删除超出 keepLatest 的最旧产物；失败只记日志，不影响当前 cycle。
func (s *FileStore) prune() {
	if s.keepLatest <= 0 {
		return
	}
	ids, err := s.listIDs()
	if err != nil || len(ids) <= s.keepLatest {
		return
	}
	for _, id := range ids[s.keepLatest:] {
		if err := os.Remove(filepath.Join(s.dir, id+".json")); err != nil {
			s.log.Warnf("prune %s: %v", id, err)
		}
	}
}
