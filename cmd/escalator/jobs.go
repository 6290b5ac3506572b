package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/app"
	"github.com/spec-kit/helpdesk-escalation/internal/config"
	"github.com/spec-kit/helpdesk-escalation/internal/observability"
)

type runSummary struct {
	RanAt          string          `json:"ran_at"`
	ActorID        string          `json:"actor_id"`
	Scanned        int             `json:"scanned"`
	EscalatedCount int             `json:"escalated_count"`
	Escalations    []runEscalation `json:"escalations"`
}

type runEscalation struct {
	TicketID         string `json:"ticket_id"`
	RuleName         string `json:"rule_name"`
	SLAStatus        string `json:"sla_status"`
	DanglingAssignee bool   `json:"dangling_assignee"`
}

func newRunCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one escalation pass and print the result as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			instance, logger, err := buildInstance(ctx, false)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer instance.Close()

			if actorID == "" {
				actorID = instance.Config.Escalation.SystemActorID
			}
			result, err := instance.Escalations.RunEscalationJob(ctx, actorID)
			if err != nil {
				return err
			}

			summary := runSummary{
				RanAt:          result.RanAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				ActorID:        result.ActorID,
				Scanned:        result.Scanned,
				EscalatedCount: result.EscalatedCount,
				Escalations:    make([]runEscalation, 0, len(result.Escalations)),
			}
			for _, esc := range result.Escalations {
				summary.Escalations = append(summary.Escalations, runEscalation{
					TicketID:         esc.TicketID,
					RuleName:         esc.Rule.Name,
					SLAStatus:        string(esc.SLAStatus),
					DanglingAssignee: esc.DanglingAssignee,
				})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor id recorded in the audit log (defaults to ESCALATION_SYSTEM_ACTOR_ID)")
	return cmd
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the escalation scheduler in the foreground until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			instance, logger, err := buildInstance(ctx, true)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			defer instance.Close()

			if err := instance.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			logger.Info("scheduler interrupted")
			return nil
		},
	}
}

func buildInstance(ctx context.Context, withScheduler bool) (*app.App, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	cfg.Escalation.SchedulerEnabled = withScheduler

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, err
	}
	instance, err := app.Build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return instance, logger, nil
}
