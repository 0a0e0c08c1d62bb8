package app

// Config holds runtime configuration for the application.
type Config struct {
	DocPath    string
	OutputPath string

	// Scope
	ScopeKind      string // document, selection, section or indices
	SelectionStart int
	SelectionEnd   int
	SectionNumber  int
	Indices        []int

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	UseAI      bool
	ListModels bool // list the backend's models and exit

	// Apply
	Apply       bool
	SelectIDs   []string // explicit item ids; empty means the default selection
	BatchSize   int
	ChineseFont string // overrides the merged typography item's CJK font
	EnglishFont string // overrides the merged typography item's Latin font
	Undo        bool

	// Behavior
	DryRun           bool
	CacheDir         string
	CacheStrictPerms bool
	Verbose          bool
	DebugVerbose     bool
}
