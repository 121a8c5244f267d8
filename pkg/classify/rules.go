// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package classify

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/sortrc/pkg/work"
	"gitlab.com/tozd/go/errors"
)

// 📏 Rule sends every path matching Pattern to Class.
type Rule struct {
	Pattern string
	Class   work.Class
}

// 🧭 RuleClassifier checks an ordered list of glob rules against the path and
// falls back to another classifier when none match. Only the class comes from
// the rule; the bucket is always the extension bucket.
type RuleClassifier struct {
	rules    []Rule
	fallback Classifier
}

// 🏭 NewRuleClassifier validates the rules up front so that Classify can stay
// total.
func NewRuleClassifier(fallback Classifier, rules ...Rule) (*RuleClassifier, error) {
	if fallback == nil {
		return nil, errors.New("fallback classifier is required")
	}
	for i, r := range rules {
		if !doublestar.ValidatePattern(r.Pattern) {
			return nil, errors.Errorf("rule %d: invalid pattern %q", i, r.Pattern)
		}
		if !r.Class.Valid() {
			return nil, errors.Errorf("rule %d: unknown class %q", i, r.Class)
		}
	}
	return &RuleClassifier{rules: rules, fallback: fallback}, nil
}

func (c *RuleClassifier) Classify(p string) work.Classification {
	slashed := filepath.ToSlash(p)
	for _, r := range c.rules {
		// patterns are validated in the constructor, so the error is always nil
		if ok, _ := doublestar.Match(r.Pattern, slashed); ok {
			return work.Classification{Class: r.Class, Bucket: Bucket(p)}
		}
	}
	return c.fallback.Classify(p)
}
