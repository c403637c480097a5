package config

// UIConfig holds user interface configuration.
type UIConfig struct {
	// SplitPaneRatio is the left:right ratio (0.0-1.0, left pane percentage)
	// Default is 0.6 (chat on the left, planner and shells on the right)
	SplitPaneRatio float64 `json:"split_pane_ratio" yaml:"split_pane_ratio"`

	// ScrollbackLines caps the shell and notebook socket panes
	ScrollbackLines int `json:"scrollback_lines" yaml:"scrollback_lines"`

	// Theme is "dark", "light" or empty for auto-detection
	Theme string `json:"theme,omitempty" yaml:"theme,omitempty"`
}

// DefaultUIConfig returns sensible UI defaults.
func DefaultUIConfig() *UIConfig {
	return &UIConfig{
		SplitPaneRatio:  0.6,
		ScrollbackLines: 2000,
	}
}
