package selectors_test

import (
	"testing"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/bwagner5/vpcplan/pkg/selectors"
	"github.com/samber/lo"
)

func TestParseSelectorsTokens(t *testing.T) {
	type testCases struct {
		selectorStr string
		expected    []selectors.Selector
		expectedErr bool
	}

	for _, tc := range []testCases{
		{
			selectorStr: "tag:Name=foo,tag:Owner=bar",
			expected: []selectors.Selector{
				{
					Tags: map[string]string{
						"Name":  "foo",
						"Owner": "bar",
					},
				},
			},
		},
		{
			selectorStr: "tag:Name=foo,tag:Owner=bar,Name:baz,ID:vpc-123",
			expected: []selectors.Selector{
				{
					Tags: map[string]string{
						"Name":  "foo",
						"Owner": "bar",
					},
					KeyVals: map[string]string{
						"name": "baz",
						"id":   "vpc-123",
					},
				},
			},
		},
		{
			selectorStr: "tag:Name=foo,tag:Owner=bar;name:us-east-1a",
			expected: []selectors.Selector{
				{
					Tags: map[string]string{
						"Name":  "foo",
						"Owner": "bar",
					},
				},
				{
					KeyVals: map[string]string{"name": "us-east-1a"},
				},
			},
		},
		{
			selectorStr: "tag:Name=foo,tag:Owner=bar;",
			expected: []selectors.Selector{
				{
					Tags: map[string]string{
						"Name":  "foo",
						"Owner": "bar",
					},
				},
			},
		},
		{
			selectorStr: "tag:Name,tag:Owner=bar",
			expected: []selectors.Selector{
				{
					Tags: map[string]string{
						"Name":  "",
						"Owner": "bar",
					},
				},
			},
		},
		{
			selectorStr: "",
		},
		{
			selectorStr: "tag:Name=a=b",
			expectedErr: true,
		},
		{
			selectorStr: "vpc-123",
			expectedErr: true,
		},
		{
			selectorStr: "id:a:b",
			expectedErr: true,
		},
	} {
		t.Run(tc.selectorStr, func(t *testing.T) {
			parsedSelectors, err := selectors.ParseSelectorsTokens(tc.selectorStr)
			if tc.expectedErr {
				if err == nil {
					t.Fatalf("expected error, got %v", parsedSelectors)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(parsedSelectors) != len(tc.expected) {
				t.Fatalf("expected %d selectors, got %d", len(tc.expected), len(parsedSelectors))
			}

			for i, expected := range tc.expected {
				if len(parsedSelectors[i].Tags) != len(expected.Tags) {
					t.Fatalf("expected %d tags, got %d", len(expected.Tags), len(parsedSelectors[i].Tags))
				}
				for k, v := range expected.Tags {
					if parsedSelectors[i].Tags[k] != v {
						t.Errorf("expected tag %q=%q, got %q=%q", k, v, k, parsedSelectors[i].Tags[k])
					}
				}
				if len(parsedSelectors[i].KeyVals) != len(expected.KeyVals) {
					t.Fatalf("expected %d key/values, got %d", len(expected.KeyVals), len(parsedSelectors[i].KeyVals))
				}
				for k, v := range expected.KeyVals {
					if parsedSelectors[i].KeyVals[k] != v {
						t.Errorf("expected %q=%q, got %q=%q", k, v, k, parsedSelectors[i].KeyVals[k])
					}
				}
			}
		})
	}
}

func TestTagsToEC2Filters(t *testing.T) {
	filters := selectors.TagsToEC2Filters(map[string]string{"Namespace": "demo", "Owner": "*"})
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(filters))
	}
	byName := lo.SliceToMap(filters, func(f ec2types.Filter) (string, []string) { return lo.FromPtr(f.Name), f.Values })
	if v := byName["tag:Namespace"]; len(v) != 1 || v[0] != "demo" {
		t.Errorf("expected tag:Namespace=demo, got %v", v)
	}
	if v := byName["tag-key"]; len(v) != 1 || v[0] != "Owner" {
		t.Errorf("expected tag-key=Owner, got %v", v)
	}
}
