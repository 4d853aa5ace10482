package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// ToolCategories is the static catalog the planner may assign steps to.
// The planner prompt forbids inventing tool names outside this list.
var ToolCategories = map[string][]string{
	"research": {
		"research.web_search",
		"research.competitor_scan",
		"research.market_summary",
	},
	"content": {
		"content.blog_post",
		"content.social_post",
		"content.landing_copy",
	},
	"email": {
		"email.draft_outreach",
		"email.draft_newsletter",
		"email.draft_followup",
	},
	"code": {
		"code.generate_snippet",
		"code.review_diff",
		"code.write_tests",
	},
	"data": {
		"data.analyze",
		"data.summarize_report",
		"data.build_spreadsheet",
	},
	"ai": {
		"ai.analyze_data",
		"ai.brainstorm",
		"ai.translate",
	},
}

// ToolCount returns the total number of tools across all categories.
func ToolCount() int {
	n := 0
	for _, tools := range ToolCategories {
		n += len(tools)
	}
	return n
}

// PlannerToolSummary renders the catalog for the planner prompt, one
// category per block, in stable order.
func PlannerToolSummary() string {
	categories := make([]string, 0, len(ToolCategories))
	for name := range ToolCategories {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, name := range categories {
		fmt.Fprintf(&b, "%s:\n", strings.ToUpper(name))
		for _, tool := range ToolCategories[name] {
			fmt.Fprintf(&b, "  - %s\n", tool)
		}
	}
	return b.String()
}
