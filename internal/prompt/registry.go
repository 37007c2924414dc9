package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"marketpipe/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// 中文说明：
// 每个 reasoning stage 的 system 提示词、token 预算和响应 JSON Schema
// 都由配置文件承载（stages.yaml），支持热更新。阶段代码只负责渲染
// user payload 与解析输出，不持有任何提示词文本。

// StageTemplate 描述单个 reasoning stage 的提示词与输出约束。
type StageTemplate struct {
	ID        string                 `mapstructure:"id" yaml:"id"`
	System    string                 `mapstructure:"system" yaml:"system"`
	MaxTokens int                    `mapstructure:"max_tokens" yaml:"max_tokens"`
	Schema    map[string]interface{} `mapstructure:"schema" yaml:"schema"`

	schemaCompiled *jsonschema.Schema
}

// FileConfig 映射 stages.yaml 根节点。
type FileConfig struct {
	Stages map[string]StageTemplate `yaml:"stages"`
}

// Snapshot 公开的模板快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Stages   map[string]StageTemplate
}

// Registry 管理 stage 模板。
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取配置文件并监听更新。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("stage registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read stage config failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("stage template reload failed: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Template 返回指定 stage 的模板。
func (r *Registry) Template(id string) (StageTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.snapshot.Stages[strings.TrimSpace(id)]
	return tpl, ok
}

// Snapshot 返回当前模板集。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dst := Snapshot{
		Version:  r.snapshot.Version,
		LoadedAt: r.snapshot.LoadedAt,
		Stages:   make(map[string]StageTemplate, len(r.snapshot.Stages)),
	}
	for id, tpl := range r.snapshot.Stages {
		dst.Stages[id] = tpl
	}
	return dst
}

func (r *Registry) reload() error {
	cfg, err := readStageFile(r.path)
	if err != nil {
		return err
	}
	stages := make(map[string]StageTemplate)
	for name, tpl := range cfg.Stages {
		norm := normalizeTemplate(name, tpl)
		stages[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Stages:   stages,
	}
	r.mu.Unlock()
	logger.Infof("stage registry loaded %d templates from %s", len(stages), filepath.Base(r.path))
	return nil
}

func normalizeTemplate(name string, tpl StageTemplate) StageTemplate {
	tpl.ID = strings.TrimSpace(tpl.ID)
	if tpl.ID == "" {
		tpl.ID = strings.TrimSpace(name)
	}
	tpl.System = strings.TrimSpace(tpl.System)
	if tpl.MaxTokens <= 0 {
		tpl.MaxTokens = 2048
	}
	if len(tpl.Schema) > 0 {
		if compiled, err := compileSchema(tpl.Schema); err != nil {
			logger.Errorf("stage schema compile failed id=%s: %v", tpl.ID, err)
		} else {
			tpl.schemaCompiled = compiled
		}
	}
	return tpl
}

func compileSchema(data map[string]interface{}) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

func readStageFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read stage config failed: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse stage config failed: %w", err)
	}
	return cfg, nil
}

// Validate 用编译后的 JSON Schema 校验 stage 输出（无 schema 时直接通过）。
func (t StageTemplate) Validate(doc any) error {
	if t.schemaCompiled == nil {
		return nil
	}
	return t.schemaCompiled.Validate(doc)
}
