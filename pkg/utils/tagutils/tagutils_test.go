package tagutils_test

import (
	"testing"

	"github.com/bwagner5/vpcplan/pkg/utils/tagutils"
)

func TestPlanTags(t *testing.T) {
	tags := tagutils.PlanTags("demo", "web", "PublicSubnetA1")
	expected := map[string]string{
		"Namespace":       "demo",
		"CreatedBy":       "vpcplan",
		"Name":            "web-PublicSubnetA1",
		"vpcplan/plan-id": "PublicSubnetA1",
		"vpcplan/network": "web",
	}
	if len(tags) != len(expected) {
		t.Fatalf("expected %d tags, got %d: %v", len(expected), len(tags), tags)
	}
	for k, v := range expected {
		if tags[k] != v {
			t.Errorf("expected tag %q=%q, got %q", k, v, tags[k])
		}
	}
}

func TestEC2TagsRoundTrip(t *testing.T) {
	tags := tagutils.NamespacedTags("demo", "")
	back := tagutils.EC2TagsToMap(tagutils.MapToEC2Tags(tags))
	if len(back) != 2 || back["Namespace"] != "demo" || back["CreatedBy"] != "vpcplan" {
		t.Errorf("unexpected tags %v", back)
	}
	if _, ok := back["Name"]; ok {
		t.Errorf("expected no Name tag when name is empty")
	}
}
