package teams

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
)

// Behavior holds the per-repository flags, keyed by repo full name
// ("owner/repo") in the config file.
type Behavior struct {
	Close        bool     `toml:"close"`
	Postpone     bool     `toml:"postpone"`
	Merge        bool     `toml:"merge"`
	Min          int      `toml:"min"`
	CreateMerge  bool     `toml:"createmerge"`
	DefaultTeams []string `toml:"defaultteams"`
}

// Team is one roster entry; the map key it lives under doubles as the
// issue label that selects the team.
type Team struct {
	Name    string   `toml:"name"`
	Ping    string   `toml:"ping"`
	Members []string `toml:"members"`
}

// Config is the full team configuration. It is loaded once at process
// start and passed by reference into everything that needs it; there is
// no lazy global.
type Config struct {
	Behaviors map[string]Behavior `toml:"behaviors"`
	Teams     map[string]Team     `toml:"teams"`
}

const defaultMinPercent = 50

// Load reads a config file. A missing file yields an empty config, not
// an error: a bot with no configured repos just idles.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Behaviors: map[string]Behavior{},
		Teams:     map[string]Team{},
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode teams config %s: %w", path, err)
	}
	if cfg.Behaviors == nil {
		cfg.Behaviors = map[string]Behavior{}
	}
	if cfg.Teams == nil {
		cfg.Teams = map[string]Team{}
	}
	return cfg, nil
}

// Repos lists the repo full names the bot is configured to watch.
func (c *Config) Repos() []string {
	repos := make([]string, 0, len(c.Behaviors))
	for repo := range c.Behaviors {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// TeamLabels lists the issue labels that select a team.
func (c *Config) TeamLabels() []string {
	labels := make([]string, 0, len(c.Teams))
	for label := range c.Teams {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// MembersForLabels returns the deduplicated member logins of every team
// whose label appears on the issue, sorted by login.
func (c *Config) MembersForLabels(labels []string) []string {
	seen := map[string]struct{}{}
	var members []string
	for _, label := range labels {
		team, ok := c.Teams[label]
		if !ok {
			continue
		}
		for _, m := range team.Members {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			members = append(members, m)
		}
	}
	sort.Strings(members)
	return members
}

// AllMembers returns every roster login across all teams, sorted.
func (c *Config) AllMembers() []string {
	return c.MembersForLabels(c.TeamLabels())
}

// MinPercent returns the review quorum percentage for a repo.
func (c *Config) MinPercent(repo string) int {
	if b, ok := c.Behaviors[repo]; ok && b.Min > 0 {
		return b.Min
	}
	return defaultMinPercent
}

// ShouldMerge reports whether finalized merge proposals in the repo are
// merged automatically.
func (c *Config) ShouldMerge(repo string) bool {
	return c.Behaviors[repo].Merge
}

// ShouldAutoCreateMerge reports whether a merge proposal is opened
// automatically on every new pull request in the repo.
func (c *Config) ShouldAutoCreateMerge(repo string) bool {
	return c.Behaviors[repo].CreateMerge
}

// DefaultLabels returns the labels applied to new pull requests.
func (c *Config) DefaultLabels(repo string) []string {
	return c.Behaviors[repo].DefaultTeams
}
