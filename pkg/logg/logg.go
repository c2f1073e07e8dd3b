package logg

// Common structured-log field keys shared across layers.
const (
	Layer     = "layer"
	Operation = "op"
	URL       = "url"
	Selector  = "selector"
	Strategy  = "strategy"
	Condition = "condition"
	Browser   = "browser"
	Category  = "category"
	RunID     = "run_id"
	Round     = "round"
	Attempt   = "attempt"
	Path      = "path"
	Value     = "value"
)
