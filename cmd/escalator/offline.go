package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-escalation/internal/app"
	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/domain"
	"github.com/spec-kit/helpdesk-escalation/internal/escalation"
	"github.com/spec-kit/helpdesk-escalation/internal/sla"
)

func newRulesCmd() *cobra.Command {
	rules := &cobra.Command{
		Use:   "rules",
		Short: "Work with escalation rule files",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "lint <file>",
		Short: "Validate a YAML rule file and list its rules in evaluation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := escalation.LoadRulesFile(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "POS\tNAME\tACTIVE\tWHEN")
			for _, r := range list {
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\n", r.Position, r.Name, r.IsActive, describeCondition(r.Condition))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rule(s) ok\n", len(list))
			return nil
		},
	})
	return rules
}

func describeCondition(cond domain.RuleCondition) string {
	var parts []string
	if cond.Priority != nil {
		parts = append(parts, "priority="+string(*cond.Priority))
	}
	if cond.Category != nil {
		parts = append(parts, "category="+string(*cond.Category))
	}
	if cond.SLAStatus != nil {
		parts = append(parts, "sla_status="+string(*cond.SLAStatus))
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, ",")
}

func newSLACmd() *cobra.Command {
	slaCmd := &cobra.Command{
		Use:   "sla",
		Short: "Preview SLA deadlines",
	}

	var (
		priority     string
		createdAt    string
		demandFactor float64
	)
	compute := &cobra.Command{
		Use:   "compute",
		Short: "Compute the deadline a ticket would be stamped with",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := domain.TicketPriority(strings.ToUpper(priority))
			if !p.Valid() {
				return fmt.Errorf("invalid priority %q", priority)
			}
			created := time.Now().UTC()
			if createdAt != "" {
				parsed, err := time.Parse(time.RFC3339, createdAt)
				if err != nil {
					return fmt.Errorf("invalid --created-at: %w", err)
				}
				created = parsed
			}
			factor := demandFactor
			if factor <= 0 {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				demand, err := app.DemandSource(cfg.SLA)
				if err != nil {
					return err
				}
				factor = demand.Factor(created)
			}

			e := sla.ComputeDeadline(p, created, factor)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tier:          %s\n", e.Tier)
			fmt.Fprintf(out, "demand factor: %g\n", e.DemandFactorApplied)
			fmt.Fprintf(out, "created at:    %s\n", created.Format(time.RFC3339))
			fmt.Fprintf(out, "sla target:    %s\n", e.Target.Format(time.RFC3339))
			fmt.Fprintf(out, "window:        %s\n", e.Target.Sub(created))
			return nil
		},
	}
	compute.Flags().StringVar(&priority, "priority", "", "ticket priority (LOW, MEDIUM, HIGH, CRITICAL)")
	compute.Flags().StringVar(&createdAt, "created-at", "", "creation instant in RFC 3339 (defaults to now)")
	compute.Flags().Float64Var(&demandFactor, "demand-factor", 0, "demand factor; when unset the configured policy is used")
	_ = compute.MarkFlagRequired("priority")
	slaCmd.AddCommand(compute)
	return slaCmd
}
