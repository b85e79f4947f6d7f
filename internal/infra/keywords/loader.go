// Package keywords loads the channel keyword table from a JSON or YAML file.
package keywords

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ircfeed/internal/domain/entity"
	"ircfeed/internal/usecase/render"
)

// ruleDocument is the on-disk shape of one channel entry.
type ruleDocument struct {
	Keywords        []string `yaml:"keywords"`
	MessageTemplate *string  `yaml:"message_template"`
}

// Load reads and parses the keyword file at path.
// The path is expected to come from trusted configuration.
func Load(path string) (*entity.KeywordTable, error) {
	// #nosec G304 -- path comes from KEYWORDS_FILE, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read keyword file: %w", entity.ErrConfigLoad, err)
	}
	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Parse decodes a keyword document. JSON is accepted since it is valid YAML.
// Channel order follows the document. Every error wraps entity.ErrConfigLoad.
func Parse(data []byte) (*entity.KeywordTable, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse keyword file: %w", entity.ErrConfigLoad, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, entity.ErrEmptyKeywordTable
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: keyword file must be a mapping of channel to rule (line %d)", entity.ErrConfigLoad, root.Line)
	}
	if len(root.Content) == 0 {
		return nil, entity.ErrEmptyKeywordTable
	}

	rules := make([]entity.ChannelRule, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		rule, err := parseRule(key, value)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	table, err := entity.NewKeywordTable(rules...)
	if err != nil {
		return nil, err
	}
	return table, nil
}

func parseRule(key, value *yaml.Node) (entity.ChannelRule, error) {
	channel := key.Value
	if value.Kind != yaml.MappingNode {
		return entity.ChannelRule{}, fmt.Errorf("%w: channel %s: rule must be a mapping (line %d)", entity.ErrConfigLoad, channel, value.Line)
	}

	var rd ruleDocument
	if err := value.Decode(&rd); err != nil {
		return entity.ChannelRule{}, fmt.Errorf("%w: channel %s: %w", entity.ErrConfigLoad, channel, err)
	}

	rule, err := entity.NewChannelRule(channel, rd.Keywords, rd.MessageTemplate)
	if err != nil {
		return entity.ChannelRule{}, err
	}
	if err := render.Validate(rule.Template); err != nil {
		return entity.ChannelRule{}, fmt.Errorf("%w: channel %s: message_template: %w", entity.ErrConfigLoad, channel, err)
	}
	return rule, nil
}
