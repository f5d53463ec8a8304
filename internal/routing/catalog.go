package routing

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/complaint-cli/internal/classify"
	"github.com/sells-group/complaint-cli/internal/model"
)

//go:embed teams.yaml
var defaultCatalog []byte

// Team is one entry of the routing catalog.
type Team struct {
	ID               string                `yaml:"id"`
	Name             string                `yaml:"name"`
	Email            string                `yaml:"email"`
	SlackChannel     string                `yaml:"slack_channel"`
	Manager          string                `yaml:"manager"`
	Responsibilities []string              `yaml:"responsibilities"`
	Categories       []string              `yaml:"categories"`
	SLAHours         map[model.Urgency]int `yaml:"sla_hours"`
}

// Catalog is the fixed set of teams a complaint can be routed to.
type Catalog struct {
	FallbackTeam    string `yaml:"fallback_team"`
	DefaultSLAHours int    `yaml:"default_sla_hours"`
	Teams           []Team `yaml:"teams"`
}

// DefaultCatalog returns the embedded team catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "routing: read catalog %s", path)
	}
	return ParseCatalog(data)
}

// ParseCatalog parses and validates catalog YAML with a top-level "routing"
// key.
func ParseCatalog(data []byte) (*Catalog, error) {
	var wrapper struct {
		Routing Catalog `yaml:"routing"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "routing: parse catalog")
	}

	cat := &wrapper.Routing
	if cat.DefaultSLAHours <= 0 {
		cat.DefaultSLAHours = 48
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

func (c *Catalog) validate() error {
	if len(c.Teams) == 0 {
		return eris.New("routing: catalog has no teams")
	}
	seen := make(map[string]bool, len(c.Teams))
	for _, t := range c.Teams {
		if t.ID == "" || t.Name == "" {
			return eris.New("routing: team id and name are required")
		}
		if seen[t.ID] {
			return eris.Errorf("routing: duplicate team id %q", t.ID)
		}
		seen[t.ID] = true
		if t.Email == "" && t.SlackChannel == "" {
			return eris.Errorf("routing: team %q has no contact", t.ID)
		}
		for _, cat := range t.Categories {
			if !model.Category(cat).Valid() {
				return eris.Errorf("routing: team %q lists unknown category %q", t.ID, cat)
			}
		}
	}
	if c.FallbackTeam != "" && !seen[c.FallbackTeam] {
		return eris.Errorf("routing: fallback team %q not in catalog", c.FallbackTeam)
	}
	return nil
}

// Team returns the team with the given id.
func (c *Catalog) Team(id string) (Team, bool) {
	for _, t := range c.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// ForCategory finds the team owning category: exact first, then partial,
// then the fallback team.
func (c *Catalog) ForCategory(category model.Category) (Team, bool) {
	want := classify.Fold(string(category))
	for _, t := range c.Teams {
		for _, cat := range t.Categories {
			if classify.Fold(cat) == want {
				return t, true
			}
		}
	}
	if want != "" {
		for _, t := range c.Teams {
			for _, cat := range t.Categories {
				f := classify.Fold(cat)
				if strings.Contains(f, want) || strings.Contains(want, f) {
					return t, true
				}
			}
		}
	}
	if t, ok := c.Team(c.FallbackTeam); ok {
		return t, false
	}
	for _, t := range c.Teams {
		name := classify.Fold(t.Name)
		if strings.Contains(name, "atendimento") || strings.Contains(name, "n2") {
			return t, false
		}
	}
	return c.Teams[0], false
}

// SLA returns the team's SLA in hours for urgency u.
func (c *Catalog) SLA(t Team, u model.Urgency) int {
	if h, ok := t.SLAHours[u]; ok && h > 0 {
		return h
	}
	return c.DefaultSLAHours
}
