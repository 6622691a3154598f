package flags

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderPrefix     = "<"
	choicePlaceholderSuffix     = ">"
	choiceSeparatorLiteral      = "|"
	choiceUsageEmptyTemplate    = "`%s`"
	choiceUsageFullTemplate     = "`%s` %s"
	choiceInvalidTemplate       = "invalid value %q: expected one of %s"
	choiceListSeparatorConstant = ", "
	choiceValueTypeNameConstant = "string"
)

// FormatChoiceUsage builds a usage string where the default option is capitalized inside a placeholder.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := choicePlaceholderPrefix + strings.Join(highlightDefaultChoice(defaultChoice, choices), choiceSeparatorLiteral) + choicePlaceholderSuffix
	if len(strings.TrimSpace(description)) == 0 {
		return fmt.Sprintf(choiceUsageEmptyTemplate, placeholder)
	}
	return fmt.Sprintf(choiceUsageFullTemplate, placeholder, description)
}

func highlightDefaultChoice(defaultChoice string, choices []string) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	highlighted := make([]string, 0, len(choices))
	seen := make([]string, 0, len(choices))

	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := strings.ToLower(trimmedChoice)
		if len(trimmedChoice) == 0 || slices.Contains(seen, normalizedChoice) {
			continue
		}
		seen = append(seen, normalizedChoice)

		if normalizedChoice == normalizedDefault {
			trimmedChoice = strings.ToUpper(trimmedChoice)
		}
		highlighted = append(highlighted, trimmedChoice)
	}
	return highlighted
}

// choiceValue is a pflag.Value that accepts only one of a fixed set of lowercase choices.
type choiceValue struct {
	target  *string
	choices []string
}

func (value *choiceValue) Set(rawValue string) error {
	normalized := strings.ToLower(strings.TrimSpace(rawValue))
	if !slices.Contains(value.choices, normalized) {
		return fmt.Errorf(choiceInvalidTemplate, rawValue, strings.Join(value.choices, choiceListSeparatorConstant))
	}
	*value.target = normalized
	return nil
}

func (value *choiceValue) String() string {
	if value == nil || value.target == nil {
		return ""
	}
	return *value.target
}

func (value *choiceValue) Type() string {
	return choiceValueTypeNameConstant
}

// AddChoiceFlag registers a string flag restricted to choices. Values are matched case-insensitively
// and stored lowercase; anything else fails flag parsing.
func AddChoiceFlag(flagSet *pflag.FlagSet, target *string, name string, defaultChoice string, choices []string, description string) {
	if flagSet == nil || target == nil || len(name) == 0 {
		return
	}

	normalizedChoices := make([]string, 0, len(choices))
	for _, choice := range choices {
		normalizedChoices = append(normalizedChoices, strings.ToLower(strings.TrimSpace(choice)))
	}
	*target = strings.ToLower(strings.TrimSpace(defaultChoice))
	flagSet.Var(&choiceValue{target: target, choices: normalizedChoices}, name, FormatChoiceUsage(defaultChoice, choices, description))
}
