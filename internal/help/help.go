// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package help

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"leakaudit/internal/detector"
	"leakaudit/internal/matcher"
	"leakaudit/internal/taxonomy"
)

// CheckInfo describes one signature family as listed by -list-checks.
type CheckInfo struct {
	Name       string // check name accepted by -checks, e.g. "CREDIT_CARD"
	Validator  string
	Signatures []detector.Signature
}

// Checks returns every check in the order validators run.
func Checks() []CheckInfo {
	var infos []CheckInfo
	for _, name := range matcher.AllChecks {
		for _, v := range matcher.BuildValidatorSet(map[string]bool{name: true}) {
			infos = append(infos, CheckInfo{Name: name, Validator: v.Name(), Signatures: v.Signatures()})
		}
	}
	return infos
}

// System renders help text.
type System struct {
	w      io.Writer
	colors map[string]*color.Color
}

// NewSystem creates a help system writing to w.
func NewSystem(w io.Writer, noColor bool) *System {
	colors := map[string]*color.Color{
		"title":    color.New(color.FgWhite, color.Bold),
		"header":   color.New(color.FgBlue, color.Bold),
		"emphasis": color.New(color.FgWhite, color.Bold),
		"negative": color.New(color.FgRed),
		"example":  color.New(color.FgMagenta),
		"muted":    color.New(color.FgHiBlack),
	}
	for _, c := range colors {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return &System{w: w, colors: colors}
}

// ShowChecksHelp lists every check with its signatures.
func (h *System) ShowChecksHelp() {
	h.colors["title"].Fprintf(h.w, "Signature checks (library %s)\n", matcher.LibraryVersion)
	fmt.Fprintln(h.w, strings.Repeat("=", 34))
	fmt.Fprintln(h.w)

	tw := tabwriter.NewWriter(h.w, 0, 0, 2, ' ', 0)
	h.colors["header"].Fprintln(tw, "  CHECK\tSIGNATURES")
	h.colors["header"].Fprintln(tw, "  -----\t----------")
	for _, info := range Checks() {
		names := make([]string, 0, len(info.Signatures))
		for _, sig := range info.Signatures {
			names = append(names, sig.Name)
		}
		fmt.Fprintf(tw, "  %s\t%s\n", h.colors["emphasis"].Sprint(info.Name), strings.Join(names, ", "))
	}
	tw.Flush()

	fmt.Fprintln(h.w)
	fmt.Fprintln(h.w, "Run a subset with:")
	h.colors["example"].Fprintf(h.w, "  leakaudit -checks %s,%s -input spans.json\n", matcher.CheckSecrets, matcher.CheckEmail)
}

// ShowCheckHelp describes a single check. It reports false for unknown names.
func (h *System) ShowCheckHelp(checkName string) bool {
	want := strings.ToUpper(strings.TrimSpace(checkName))
	for _, info := range Checks() {
		if info.Name != want {
			continue
		}
		h.colors["title"].Fprintf(h.w, "%s (%s)\n", info.Name, info.Validator)
		fmt.Fprintln(h.w, strings.Repeat("=", len(info.Name)+len(info.Validator)+3))
		tw := tabwriter.NewWriter(h.w, 0, 0, 2, ' ', 0)
		for _, sig := range info.Signatures {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", sig.Name, implied(sig.Category), sig.Description)
		}
		tw.Flush()
		return true
	}
	h.colors["negative"].Fprintf(h.w, "Error: check '%s' not found.\n", checkName)
	fmt.Fprintf(h.w, "Available: %s\n", strings.Join(matcher.AllChecks, ", "))
	return false
}

func implied(c taxonomy.Category) string {
	if c == taxonomy.None {
		return "(scaffolding)"
	}
	return string(c)
}
