package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"corsa-hq/quaestor/pkg/cli"
	"corsa-hq/quaestor/pkg/policy"
	"corsa-hq/quaestor/pkg/policy/source"
)

var evaluateFlags struct {
	rules      string
	amount     float64
	quantity   float64
	categories []string
	role       string
	department string
	costCenter string
	vendor     string
	format     string
	trace      bool
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a spend context against policy rules",
	Long: `Evaluate a spend context against a rule file or directory and print
the resulting decision.

Only the flags you pass become part of the context; conditions that
reference absent fields fail closed, exactly as they do at runtime.

Examples:
  # Evaluate a purchase amount
  quaestor evaluate --rules rules/ --amount 2500

  # Full context with categories and requester details
  quaestor evaluate --rules rules/ --amount 2500 \
    --category software --role engineer --department platform

  # JSON output including the per-rule trace
  quaestor evaluate --rules rules/ --amount 2500 --format json --trace`,
	RunE: evaluateContext,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVarP(&evaluateFlags.rules, "rules", "r", "", "rule file or directory (required)")
	evaluateCmd.Flags().Float64Var(&evaluateFlags.amount, "amount", 0, "spend amount")
	evaluateCmd.Flags().Float64Var(&evaluateFlags.quantity, "quantity", 0, "unit quantity")
	evaluateCmd.Flags().StringSliceVar(&evaluateFlags.categories, "category", nil, "spend category (repeatable)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.role, "role", "", "requester role")
	evaluateCmd.Flags().StringVar(&evaluateFlags.department, "department", "", "requester department")
	evaluateCmd.Flags().StringVar(&evaluateFlags.costCenter, "cost-center", "", "cost center")
	evaluateCmd.Flags().StringVar(&evaluateFlags.vendor, "vendor", "", "vendor id")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.trace, "trace", false, "include the per-rule evaluation trace")
	evaluateCmd.MarkFlagRequired("rules")
}

// EvaluateReport is the printable form of an evaluation result.
type EvaluateReport struct {
	Matched           bool                    `json:"matched"`
	RuleID            string                  `json:"rule_id,omitempty"`
	RuleName          string                  `json:"rule_name,omitempty"`
	Action            string                  `json:"action,omitempty"`
	RequiresApproval  bool                    `json:"requires_approval"`
	CanAutoApprove    bool                    `json:"can_auto_approve"`
	ShouldReject      bool                    `json:"should_reject"`
	RequiredApprovers []string                `json:"required_approvers,omitempty"`
	Trace             []policy.RuleEvaluation `json:"trace,omitempty"`
}

func evaluateContext(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	src := source.NewFileSource(evaluateFlags.rules, source.NewRegistry(), logger)
	rules, err := src.Load(cmd.Context())
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	spendCtx := contextFromFlags(cmd)
	result := policy.EvaluateRules(rules, spendCtx)
	report := buildReport(result, evaluateFlags.trace)

	if evaluateFlags.format == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report)
	}
	printReport(report)
	return nil
}

// contextFromFlags builds a spend context from the flags that were
// actually set. Unset flags stay nil so absence semantics hold.
func contextFromFlags(cmd *cobra.Command) *policy.SpendContext {
	spendCtx := &policy.SpendContext{Categories: evaluateFlags.categories}

	if cmd.Flags().Changed("amount") {
		spendCtx.Amount = &evaluateFlags.amount
	}
	if cmd.Flags().Changed("quantity") {
		spendCtx.Quantity = &evaluateFlags.quantity
	}
	if cmd.Flags().Changed("role") {
		spendCtx.UserRole = &evaluateFlags.role
	}
	if cmd.Flags().Changed("department") {
		spendCtx.Department = &evaluateFlags.department
	}
	if cmd.Flags().Changed("cost-center") {
		spendCtx.CostCenter = &evaluateFlags.costCenter
	}
	if cmd.Flags().Changed("vendor") {
		spendCtx.VendorID = &evaluateFlags.vendor
	}

	return spendCtx
}

func buildReport(result *policy.RuleEvaluationResult, trace bool) EvaluateReport {
	report := EvaluateReport{
		Matched:           result.Matched,
		RequiresApproval:  result.RequiresApproval(),
		CanAutoApprove:    result.CanAutoApprove(),
		ShouldReject:      result.ShouldReject(),
		RequiredApprovers: result.RequiredApprovers(),
	}
	if result.MatchedRule != nil {
		report.RuleID = result.MatchedRule.ID
		report.RuleName = result.MatchedRule.Name
	}
	if result.Action != nil {
		report.Action = string(result.Action.Type)
	}
	if trace {
		report.Trace = result.Evaluations
	}
	return report
}

func printReport(report EvaluateReport) {
	if report.Matched {
		fmt.Printf("Matched rule: %s (%s)\n", report.RuleName, report.RuleID)
		fmt.Printf("Action: %s\n", report.Action)
	} else {
		fmt.Println("No rule matched")
	}

	switch {
	case report.ShouldReject:
		fmt.Println("Decision: REJECT")
	case report.CanAutoApprove:
		fmt.Println("Decision: AUTO-APPROVE")
	default:
		fmt.Println("Decision: REQUIRES APPROVAL")
		if len(report.RequiredApprovers) > 0 {
			fmt.Printf("Approvers: %s\n", strings.Join(report.RequiredApprovers, ", "))
		}
	}

	if len(report.Trace) > 0 {
		fmt.Println("\nTrace:")
		for _, eval := range report.Trace {
			status := "no match"
			if eval.Matched {
				status = "match"
			}
			fmt.Printf("  [%d] %s: %s\n", eval.Rule.Priority, eval.Rule.ID, status)
		}
	}
}
