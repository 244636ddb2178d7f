/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package contenttype classifies files by path so that only source files
// are republished out of dependency directories.
package contenttype

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Content types known to tsvirt.
const (
	TypeScript  = "text/typescript"
	JavaScript  = "text/javascript"
	JSON        = "application/json"
	OctetStream = "application/octet-stream"
)

// Detector reports the content type of a file.
type Detector interface {
	ContentType(path string) string
}

// Rule assigns Type to every path matching the doublestar Pattern.
type Rule struct {
	Pattern string `json:"pattern" yaml:"pattern" mapstructure:"pattern"`
	Type    string `json:"type" yaml:"type" mapstructure:"type"`
}

// DefaultRules is the built-in rule set.
var DefaultRules = []Rule{
	{Pattern: "**/*.ts", Type: TypeScript},
	{Pattern: "**/*.tsx", Type: TypeScript},
	{Pattern: "**/*.mts", Type: TypeScript},
	{Pattern: "**/*.cts", Type: TypeScript},
	{Pattern: "**/*.js", Type: JavaScript},
	{Pattern: "**/*.mjs", Type: JavaScript},
	{Pattern: "**/*.cjs", Type: JavaScript},
	{Pattern: "**/*.json", Type: JSON},
}

// PatternDetector matches paths against an ordered rule list; the first
// matching rule wins and unmatched paths are OctetStream.
type PatternDetector struct {
	rules []Rule
}

// NewPatternDetector creates a detector from DefaultRules, with extra rules
// taking precedence in the order given.
func NewPatternDetector(extra ...Rule) (*PatternDetector, error) {
	rules := make([]Rule, 0, len(extra)+len(DefaultRules))
	for _, rule := range extra {
		if !doublestar.ValidatePattern(rule.Pattern) {
			return nil, fmt.Errorf("invalid content type pattern %q", rule.Pattern)
		}
		if rule.Type == "" {
			return nil, fmt.Errorf("content type pattern %q has no type", rule.Pattern)
		}
		rules = append(rules, rule)
	}
	rules = append(rules, DefaultRules...)
	return &PatternDetector{rules: rules}, nil
}

// ContentType implements Detector.
func (d *PatternDetector) ContentType(path string) string {
	name := strings.TrimPrefix(filepath.ToSlash(path), "/")
	for _, rule := range d.rules {
		if ok, _ := doublestar.Match(rule.Pattern, name); ok {
			return rule.Type
		}
	}
	return OctetStream
}
