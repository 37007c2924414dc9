package config

// Config 是 marketpipe 的主配置载体。除 API 密钥（从环境变量读取）外，
// 所有运行参数都来自配置文件；任何组件都不得自行读取环境变量。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	AI        AIConfig        `mapstructure:"ai"`
	Web       WebConfig       `mapstructure:"web"`
	Social    SocialConfig    `mapstructure:"social"`
	Financial FinancialConfig `mapstructure:"financial"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Store     StoreConfig     `mapstructure:"store"`
}

type AppConfig struct {
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	LLMLog   string `mapstructure:"llm_log_path"`
	LLMDump  bool   `mapstructure:"llm_dump"`
}

// PipelineConfig controls the cycle loop and the safety gates.
type PipelineConfig struct {
	Query              string `mapstructure:"query"`
	Once               bool   `mapstructure:"once"`
	IntervalSeconds    int    `mapstructure:"interval_seconds"`
	StopIfMarketClosed bool   `mapstructure:"stop_if_market_closed"`

	MaxCandidateSymbols int     `mapstructure:"max_candidate_symbols"`
	MaxFocusSymbols     int     `mapstructure:"max_focus_symbols"`
	OrderQty            float64 `mapstructure:"order_qty"`

	// ExecuteOrders 开启后才会真正下单（LIVE）；默认 dry-run。
	// AutoConfirm 跳过交互确认，仅用于无人值守运行。
	ExecuteOrders bool `mapstructure:"execute_orders"`
	AutoConfirm   bool `mapstructure:"auto_confirm"`
}

type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"-"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	StagesPath     string `mapstructure:"stages_path"`
}

type WebConfig struct {
	BaseURL        string   `mapstructure:"base_url"`
	APIKey         string   `mapstructure:"-"`
	Topic          string   `mapstructure:"topic"`
	SearchDepth    string   `mapstructure:"search_depth"`
	TimeRange      string   `mapstructure:"time_range"`
	MaxResults     int      `mapstructure:"max_results"`
	IncludeDomains []string `mapstructure:"include_domains"`
	ExcludeDomains []string `mapstructure:"exclude_domains"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

type SocialConfig struct {
	CacheFile string `mapstructure:"cache_file"`
}

type FinancialConfig struct {
	Provider       string `mapstructure:"provider"` // "yahoo" | "mock"
	MockFile       string `mapstructure:"mock_file"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type BrokerConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"-"`
	APISecret      string `mapstructure:"-"`
	Paper          bool   `mapstructure:"paper"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type StoreConfig struct {
	ArtifactDir string `mapstructure:"artifact_dir"`
	CycleDB     string `mapstructure:"cycle_db"`
	KeepLatest  int    `mapstructure:"keep_latest"`
}
