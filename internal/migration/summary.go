package migration

import (
	"regexp"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

	createTable    = regexp.MustCompile(`(?i)\bcreate\s+(?:unlogged\s+|temp(?:orary)?\s+)?table\s+(?:if\s+not\s+exists\s+)?([\w."]+)`)
	createIndex    = regexp.MustCompile(`(?i)\bcreate\s+(?:unique\s+)?index\b`)
	createTrigger  = regexp.MustCompile(`(?i)\bcreate\s+(?:or\s+replace\s+)?(?:constraint\s+)?trigger\b`)
	createPolicy   = regexp.MustCompile(`(?i)\bcreate\s+policy\b`)
	createFunction = regexp.MustCompile(`(?i)\bcreate\s+(?:or\s+replace\s+)?function\b`)
	enableRLS      = regexp.MustCompile(`(?i)\benable\s+row\s+level\s+security\b`)
)

// Summary lists what a migration creates
type Summary struct {
	Tables    []string `json:"tables"`
	Indexes   int      `json:"indexes"`
	Triggers  int      `json:"triggers"`
	Policies  int      `json:"policies"`
	Functions int      `json:"functions"`
	RLSTables int      `json:"rls_tables"`
}

// Summarize derives a Summary from CREATE statements. Comments are ignored.
// Tables are listed in order of first appearance without the schema.
func Summarize(sql string) *Summary {
	stripped := blockComment.ReplaceAllString(sql, " ")
	stripped = lineComment.ReplaceAllString(stripped, "")

	summary := &Summary{Tables: []string{}}
	seen := make(map[string]bool)
	for _, match := range createTable.FindAllStringSubmatch(stripped, -1) {
		name := tableName(match[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		summary.Tables = append(summary.Tables, name)
	}

	summary.Indexes = len(createIndex.FindAllStringIndex(stripped, -1))
	summary.Triggers = len(createTrigger.FindAllStringIndex(stripped, -1))
	summary.Policies = len(createPolicy.FindAllStringIndex(stripped, -1))
	summary.Functions = len(createFunction.FindAllStringIndex(stripped, -1))
	summary.RLSTables = len(enableRLS.FindAllStringIndex(stripped, -1))

	return summary
}

func tableName(qualified string) string {
	name := strings.ReplaceAll(qualified, `"`, "")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}
