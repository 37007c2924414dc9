package config

const (
	defaultLogLevel        = "info"
	defaultQuery           = "S&P 500 market drivers today"
	defaultIntervalSeconds = 300
	defaultMaxCandidates   = 12
	defaultMaxFocus        = 6
	defaultOrderQty        = 1.0
	defaultAIBaseURL       = "https://api.x.ai/v1"
	defaultAIModel         = "grok-3-mini"
	defaultAITimeout       = 120
	defaultAIMaxRetries    = 2
	defaultStagesPath      = "configs/stages.yaml"
	defaultWebBaseURL      = "https://api.tavily.com"
	defaultWebTopic        = "finance"
	defaultWebDepth        = "basic"
	defaultWebTimeRange    = "day"
	defaultWebMaxResults   = 8
	defaultWebTimeout      = 30
	defaultFinProvider     = "yahoo"
	defaultFinBaseURL      = "https://query1.finance.yahoo.com"
	defaultFinTimeout      = 15
	defaultBrokerPaperURL  = "https://paper-api.alpaca.markets"
	defaultBrokerTimeout   = 20
	defaultArtifactDir     = "pipeline_runs"
	defaultKeepLatest      = 20
)

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = defaultLogLevel
	}
	if c.Pipeline.Query == "" {
		c.Pipeline.Query = defaultQuery
	}
	if c.Pipeline.IntervalSeconds == 0 {
		c.Pipeline.IntervalSeconds = defaultIntervalSeconds
	}
	if c.Pipeline.MaxCandidateSymbols == 0 {
		c.Pipeline.MaxCandidateSymbols = defaultMaxCandidates
	}
	if c.Pipeline.MaxFocusSymbols == 0 {
		c.Pipeline.MaxFocusSymbols = defaultMaxFocus
	}
	if c.Pipeline.OrderQty == 0 {
		c.Pipeline.OrderQty = defaultOrderQty
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = defaultAIBaseURL
	}
	if c.AI.Model == "" {
		c.AI.Model = defaultAIModel
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = defaultAITimeout
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = defaultAIMaxRetries
	}
	if c.AI.StagesPath == "" {
		c.AI.StagesPath = defaultStagesPath
	}
	if c.Web.BaseURL == "" {
		c.Web.BaseURL = defaultWebBaseURL
	}
	if c.Web.Topic == "" {
		c.Web.Topic = defaultWebTopic
	}
	if c.Web.SearchDepth == "" {
		c.Web.SearchDepth = defaultWebDepth
	}
	if c.Web.TimeRange == "" {
		c.Web.TimeRange = defaultWebTimeRange
	}
	if c.Web.MaxResults == 0 {
		c.Web.MaxResults = defaultWebMaxResults
	}
	if c.Web.TimeoutSeconds == 0 {
		c.Web.TimeoutSeconds = defaultWebTimeout
	}
	if c.Financial.Provider == "" {
		c.Financial.Provider = defaultFinProvider
	}
	if c.Financial.BaseURL == "" {
		c.Financial.BaseURL = defaultFinBaseURL
	}
	if c.Financial.TimeoutSeconds == 0 {
		c.Financial.TimeoutSeconds = defaultFinTimeout
	}
	if c.Broker.BaseURL == "" && c.Broker.Paper {
		c.Broker.BaseURL = defaultBrokerPaperURL
	}
	if c.Broker.TimeoutSeconds == 0 {
		c.Broker.TimeoutSeconds = defaultBrokerTimeout
	}
	if c.Store.ArtifactDir == "" {
		c.Store.ArtifactDir = defaultArtifactDir
	}
	if c.Store.KeepLatest == 0 {
		c.Store.KeepLatest = defaultKeepLatest
	}
}
