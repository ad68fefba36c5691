// Package report renders Slack formatted comparison reports.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/ethpandaops/testnetoor/pkg/smoketest"
	"github.com/ethpandaops/testnetoor/pkg/store"
)

// ReferenceLabel labels the reference deployment of a comparison.
const ReferenceLabel = "REF"

// Header opens every comparison report.
const Header = "*Environment Comparison Report*"

// NoSmokeTestResults replaces the answers of a deployment with none.
const NoSmokeTestResults = "_No smoke test results recorded_"

type entry struct {
	label      string
	id         uint
	deployment *store.Deployment
}

func entries(c *store.Comparison) []entry {
	out := make([]entry, 0, len(c.Tests)+1)
	out = append(out, entry{
		label:      ReferenceLabel,
		id:         c.ReferenceDeploymentID,
		deployment: c.ReferenceDeployment,
	})

	tests := make([]store.ComparisonTest, len(c.Tests))
	copy(tests, c.Tests)
	sort.SliceStable(tests, func(i, j int) bool {
		return tests[i].Position < tests[j].Position
	})

	for _, t := range tests {
		out = append(out, entry{label: t.Label, id: t.DeploymentID, deployment: t.Deployment})
	}

	return out
}

// DeploymentName derives the display name of a deployment.
func DeploymentName(d *store.Deployment) string {
	kind := string(d.Kind)
	if kind == "" {
		kind = "deployment"
	}

	return fmt.Sprintf("%s (%s #%d)", d.Name, kind, d.ID)
}

func (e entry) name() string {
	if e.deployment == nil {
		return fmt.Sprintf("deployment #%d", e.id)
	}

	return DeploymentName(e.deployment)
}

// BuildReport renders the comparison. Output depends only on the
// comparison, so the same comparison always renders the same bytes.
func BuildReport(c *store.Comparison) string {
	var b strings.Builder

	b.WriteString(Header)
	b.WriteString("\n")

	if c.Description != "" {
		b.WriteString(c.Description)
		b.WriteString("\n")
	}

	if c.ThreadLink != nil && *c.ThreadLink != "" {
		fmt.Fprintf(&b, "Thread: %s\n", *c.ThreadLink)
	}

	all := entries(c)

	b.WriteString("\n")

	for _, e := range all {
		fmt.Fprintf(&b, "• *%s*: %s\n", e.label, e.name())
	}

	for _, e := range all {
		b.WriteString("\n")
		fmt.Fprintf(&b, "*%s: %s*\n", e.label, e.name())

		if e.deployment == nil {
			b.WriteString("_Deployment details unavailable_\n")

			continue
		}

		b.WriteString(DeploymentBlock(e.deployment))
	}

	return b.String()
}

// DeploymentBlock renders the details of one deployment.
func DeploymentBlock(d *store.Deployment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Environment type: %s\n", d.EnvironmentType)

	switch {
	case d.HasVersions():
		b.WriteString("_Version details_\n")
		writeField(&b, "ant", d.AntVersion)
		writeField(&b, "antnode", d.AntnodeVersion)
		writeField(&b, "antctl", d.AntctlVersion)
	case d.HasBranch():
		b.WriteString("_Branch details_\n")
		writeField(&b, "Repository owner", d.RepoOwner)
		writeField(&b, "Branch", d.Branch)
	}

	writeNodes(&b, d)
	writeUploaders(&b, d)

	writeSection(&b, "Misc", []field{
		{"Max log files", intString(d.MaxLogFiles)},
		{"Max archived log files", intString(d.MaxArchivedLogFiles)},
		{"Related PR", lo.Ternary(d.RelatedPR != nil, "#"+intValue(d.RelatedPR), "")},
	})

	writeSection(&b, "EVM", []field{
		{"Network type", stringValue(d.EvmNetworkType)},
		{"Rewards address", stringValue(d.RewardsAddress)},
		{"Data payments address", stringValue(d.EvmDataPaymentsAddress)},
		{"Payment token address", stringValue(d.EvmPaymentTokenAddress)},
		{"RPC URL", stringValue(d.EvmRPCURL)},
	})

	return b.String()
}

type role struct {
	name  string
	nodes *int
	vms   *int
	size  *string
}

func writeNodes(b *strings.Builder, d *store.Deployment) {
	roles := []role{
		{"Peer cache", d.PeerCacheNodeCount, d.PeerCacheVMCount, d.PeerCacheVMSize},
		{"Generic", d.GenericNodeCount, d.GenericVMCount, d.GenericVMSize},
		{"Full cone private", d.FullConePrivateNodeCount, d.FullConePrivateVMCount, d.FullConePrivateVMSize},
		{"Symmetric private", d.SymmetricPrivateNodeCount, d.SymmetricPrivateVMCount, d.SymmetricPrivateVMSize},
	}

	present := lo.Filter(roles, func(r role, _ int) bool {
		return r.nodes != nil && r.vms != nil
	})

	if len(present) == 0 {
		return
	}

	b.WriteString("_Node configuration_\n")

	var total int64

	for _, r := range present {
		count := int64(*r.nodes) * int64(*r.vms)
		total += count

		fmt.Fprintf(b, "  %s: %d x %d = %s", r.name, *r.nodes, *r.vms, humanize.Comma(count))

		if r.size != nil {
			fmt.Fprintf(b, " (%s)", *r.size)
		}

		b.WriteString("\n")
	}

	fmt.Fprintf(b, "  Total nodes: %s\n", humanize.Comma(total))
}

func writeUploaders(b *strings.Builder, d *store.Deployment) {
	if d.UploadersCount == nil || d.UploaderVMCount == nil {
		return
	}

	total := int64(*d.UploadersCount) * int64(*d.UploaderVMCount)

	b.WriteString("_Uploader configuration_\n")
	fmt.Fprintf(b, "  Uploaders: %d x %d = %s", *d.UploadersCount, *d.UploaderVMCount, humanize.Comma(total))

	if d.UploaderVMSize != nil {
		fmt.Fprintf(b, " (%s)", *d.UploaderVMSize)
	}

	b.WriteString("\n")
}

type field struct {
	name  string
	value string
}

// writeSection renders a section only when one of its fields is set.
func writeSection(b *strings.Builder, title string, fields []field) {
	set := lo.Filter(fields, func(f field, _ int) bool { return f.value != "" })
	if len(set) == 0 {
		return
	}

	fmt.Fprintf(b, "_%s_\n", title)

	for _, f := range set {
		fmt.Fprintf(b, "  %s: %s\n", f.name, f.value)
	}
}

func writeField(b *strings.Builder, name string, value *string) {
	fmt.Fprintf(b, "  %s: %s\n", name, lo.FromPtrOr(value, "-"))
}

func stringValue(s *string) string {
	return lo.FromPtr(s)
}

func intString(v *int) string {
	if v == nil {
		return ""
	}

	return intValue(v)
}

func intValue(v *int) string {
	return fmt.Sprintf("%d", lo.FromPtr(v))
}

// BuildSmokeTestSection renders the latest questionnaire answers of every
// deployment in the comparison, in comparison order.
func BuildSmokeTestSection(c *store.Comparison, results map[uint]*store.SmokeTestResult) string {
	var b strings.Builder

	b.WriteString("*Smoke Test Results*\n")

	for _, e := range entries(c) {
		b.WriteString("\n")
		fmt.Fprintf(&b, "*%s: %s*\n", e.label, e.name())

		result, ok := results[e.id]
		if !ok || result == nil || len(result.Answers) == 0 {
			b.WriteString(NoSmokeTestResults)
			b.WriteString("\n")

			continue
		}

		answers := result.AnswerStrings()

		for _, q := range orderedQuestions(answers) {
			fmt.Fprintf(&b, "%s %s\n", smoketest.Glyph(answers[q]), q)
		}
	}

	return b.String()
}

// orderedQuestions lists the questionnaire order first, then any other
// answered questions alphabetically.
func orderedQuestions(answers map[string]string) []string {
	known := lo.Filter(smoketest.Questions, func(q string, _ int) bool {
		_, ok := answers[q]

		return ok
	})

	extra := lo.Without(lo.Keys(answers), smoketest.Questions...)
	sort.Strings(extra)

	return append(known, extra...)
}
