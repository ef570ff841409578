package selectors

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// Selector is one parsed term: tag criteria plus any other key:value pairs, keyed in lower case
type Selector struct {
	Tags    map[string]string
	KeyVals map[string]string
}

// ParseSelectorsTokens parses a string of selectors into a slice of Selector structs
// Selectors are parsed as a set of terms. Each term is separated by a semicolon.
// Terms are OR'd together.
// Within a term, individual selection criteria is separated by a comma. Criteria are AND'd together.
//
// Example:
//
// "tag:Name=demo,tag:Environment=dev;id:vpc-0123456"
//
// This will parse into two selectors:
//  1. tag:Name=demo,tag:Environment=dev (the resource must have both tags)
//  2. id:vpc-0123456
//
// A tag given without a value ("tag:Name") matches any value.
func ParseSelectorsTokens(selectors string) ([]Selector, error) {
	selectors = strings.TrimSpace(selectors)
	var parsedSelectors []Selector
	for _, term := range strings.Split(selectors, ";") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		selector := Selector{
			Tags:    map[string]string{},
			KeyVals: map[string]string{},
		}
		for _, s := range strings.Split(term, ",") {
			s = strings.TrimSpace(s)
			key, value, found := strings.Cut(s, ":")
			if !found || key == "" {
				return nil, fmt.Errorf("invalid selector: %q. Expected \"key:value\"", s)
			}
			if strings.EqualFold(key, "tag") {
				tagTokens := strings.Split(value, "=")
				if len(tagTokens) > 2 {
					return nil, fmt.Errorf("invalid tag selector: %s. Expected 0 or 1 \"=\", but found %d", value, len(tagTokens)-1)
				}
				// if only the tag key was given, then we set the value to the empty string and use it as a wildcard
				if len(tagTokens) == 1 {
					selector.Tags[tagTokens[0]] = ""
				} else {
					selector.Tags[tagTokens[0]] = tagTokens[1]
				}
				continue
			}
			if strings.Contains(value, ":") {
				return nil, fmt.Errorf("invalid %s selector: %s. Expected 1 \":\", but found %d", key, s, strings.Count(s, ":"))
			}
			selector.KeyVals[strings.ToLower(key)] = value
		}
		parsedSelectors = append(parsedSelectors, selector)
	}
	return parsedSelectors, nil
}

// TagsToEC2Filters converts tag criteria into EC2 filters. Empty or "*" values match on the key only.
func TagsToEC2Filters(tags map[string]string) []ec2types.Filter {
	var filters []ec2types.Filter
	for k, v := range tags {
		if v == "*" || v == "" {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String("tag-key"),
				Values: []string{k},
			})
		} else {
			filters = append(filters, ec2types.Filter{
				Name:   aws.String(fmt.Sprintf("tag:%s", k)),
				Values: []string{v},
			})
		}
	}
	return filters
}
